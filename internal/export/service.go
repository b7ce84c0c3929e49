package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/defolio/defolio/internal/domain"
)

// SnapshotWriter writes snapshot rows to a spreadsheet destination.
type SnapshotWriter interface {
	AppendSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error
}

// Service forwards freshly generated snapshots to the monitoring spreadsheet.
type Service struct {
	writer SnapshotWriter
}

// NewService creates a new export Service.
func NewService(writer SnapshotWriter) *Service {
	return &Service{writer: writer}
}

// Export appends the snapshot to the monitoring sheet. Implements
// worker.AfterSnapshotHook.
func (s *Service) Export(ctx context.Context, snap domain.PortfolioSnapshot) error {
	if err := s.writer.AppendSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("appending snapshot to monitoring sheet: %w", err)
	}
	return nil
}

// MonthlyReportPath returns the conventional file name for a month's report
// workbook under dir.
func MonthlyReportPath(dir string, year, month int) string {
	return filepath.Join(dir, fmt.Sprintf("nav-report-%04d-%02d.xlsx", year, month))
}
