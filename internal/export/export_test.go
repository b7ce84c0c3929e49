package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/apy"
	"github.com/defolio/defolio/internal/domain"
)

func TestBuildNavRows(t *testing.T) {
	res := domain.NAVCalculationResult{
		Year:                 2026,
		Month:                7,
		Investments:          decimal.NewFromInt(99000),
		DividendsReceivable:  decimal.NewFromInt(1000),
		TotalAssets:          decimal.NewFromInt(100000),
		PreFeeNav:            decimal.NewFromFloat(99666.67),
		PriorPreFeeNav:       decimal.NewFromInt(95000),
		PriorPreFeeNavSource: domain.PriorNavAutoLoaded,
		NetAssets:            decimal.NewFromFloat(99313.35),
	}

	rows := buildNavRows(res)

	if rows[0][1] != "2026-07" {
		t.Errorf("title period = %v, want 2026-07", rows[0][1])
	}

	var sourceCell any
	for _, row := range rows {
		if len(row) >= 3 && row[0] == "Prior pre-fee NAV" {
			sourceCell = row[2]
		}
	}
	if sourceCell != "auto_loaded" {
		t.Errorf("prior nav source cell = %v, want auto_loaded", sourceCell)
	}
}

func TestBuildNavRowsIncludesWarnings(t *testing.T) {
	res := domain.NAVCalculationResult{
		Year: 2026, Month: 7,
		Warnings: []string{"pre-fee NAV is negative"},
	}

	rows := buildNavRows(res)

	found := false
	for _, row := range rows {
		if len(row) == 2 && row[0] == "Warning" && row[1] == "pre-fee NAV is negative" {
			found = true
		}
	}
	if !found {
		t.Error("warning row not present in NAV sheet")
	}
}

func TestBuildYieldRowsSorted(t *testing.T) {
	yields := map[string]apy.Result{
		"zeta": {PositionIdentity: "zeta", APY: 5, Method: apy.MethodValueChange, Confidence: apy.ConfidenceHigh},
		"alfa": {PositionIdentity: "alfa", APY: 3, Method: apy.MethodRewardsBased, Confidence: apy.ConfidenceMedium},
	}

	rows := buildYieldRows(yields)

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][0] != "alfa" || rows[2][0] != "zeta" {
		t.Errorf("rows not sorted by identity: %v, %v", rows[1][0], rows[2][0])
	}
	if rows[1][4] != "rewards_based" {
		t.Errorf("method cell = %v, want rewards_based", rows[1][4])
	}
}

func TestBuildMonitoringRow(t *testing.T) {
	snap := domain.PortfolioSnapshot{
		WalletAddress: "0xabc",
		Date:          time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC),
		TotalValue:    100000,
		Tokens: []domain.TokenHolding{
			{Symbol: "ETH", ValueUSD: 60000},
		},
		Positions: []domain.Position{
			{ProtocolName: "Aave", TotalValue: 40000,
				RewardTokens: []domain.TokenHolding{{Symbol: "AAVE", ValueUSD: 120}}},
		},
	}

	row := buildMonitoringRow(snap)

	if len(row) != len(monitoringHeaders) {
		t.Fatalf("row has %d cells, headers have %d", len(row), len(monitoringHeaders))
	}
	if row[0] != "31.07.2026" {
		t.Errorf("date cell = %v, want 31.07.2026", row[0])
	}
	if row[1] != "0xabc" {
		t.Errorf("wallet cell = %v, want 0xabc", row[1])
	}
	if row[5] != 120.0 {
		t.Errorf("rewards cell = %v, want 120", row[5])
	}
}

type mockSnapshotWriter struct {
	appended []domain.PortfolioSnapshot
	err      error
}

func (m *mockSnapshotWriter) AppendSnapshot(_ context.Context, snap domain.PortfolioSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, snap)
	return nil
}

func TestServiceExport(t *testing.T) {
	writer := &mockSnapshotWriter{}
	svc := NewService(writer)

	snap := domain.PortfolioSnapshot{WalletAddress: "0xabc"}
	if err := svc.Export(context.Background(), snap); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(writer.appended) != 1 {
		t.Fatalf("appended = %d, want 1", len(writer.appended))
	}
}

func TestServiceExportWrapsError(t *testing.T) {
	writer := &mockSnapshotWriter{err: errors.New("quota exceeded")}
	svc := NewService(writer)

	err := svc.Export(context.Background(), domain.PortfolioSnapshot{})
	if err == nil {
		t.Fatal("Export() error = nil, want wrapped error")
	}
	if !errors.Is(err, writer.err) {
		t.Errorf("error does not wrap the writer error: %v", err)
	}
}

func TestMonthlyReportPath(t *testing.T) {
	got := MonthlyReportPath("/tmp/reports", 2026, 7)
	want := "/tmp/reports/nav-report-2026-07.xlsx"
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
