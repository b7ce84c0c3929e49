package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/defolio/defolio/internal/domain"
	"github.com/defolio/defolio/internal/nav"
)

type monthKey struct {
	year, month int
}

type mockNavRepo struct {
	settings map[monthKey]*domain.NAVSettings
	results  map[monthKey]*domain.NAVCalculationResult
}

func newMockNavRepo() *mockNavRepo {
	return &mockNavRepo{
		settings: make(map[monthKey]*domain.NAVSettings),
		results:  make(map[monthKey]*domain.NAVCalculationResult),
	}
}

func (m *mockNavRepo) SaveSettings(_ context.Context, s domain.NAVSettings) error {
	m.settings[monthKey{s.Year, s.Month}] = &s
	return nil
}

func (m *mockNavRepo) GetSettings(_ context.Context, _ string, year, month int) (*domain.NAVSettings, error) {
	if s, ok := m.settings[monthKey{year, month}]; ok {
		return s, nil
	}
	return nil, nav.ErrNotFound
}

func (m *mockNavRepo) SaveResult(_ context.Context, res domain.NAVCalculationResult) error {
	m.results[monthKey{res.Year, res.Month}] = &res
	return nil
}

func (m *mockNavRepo) GetResult(_ context.Context, _ string, year, month int) (*domain.NAVCalculationResult, error) {
	if r, ok := m.results[monthKey{year, month}]; ok {
		return r, nil
	}
	return nil, nav.ErrNotFound
}

func navRequest(method, path string, year, month, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.SetPathValue("year", year)
	req.SetPathValue("month", month)
	return req
}

func TestPutSettingsOverridesPathValues(t *testing.T) {
	repo := newMockNavRepo()
	handler := NewNAVHandler(nav.NewService(repo))

	body := `{"year":1999,"month":12,"feeSettings":{"managementFeeRate":"0.02"}}`
	req := navRequest(http.MethodPut, "/api/v1/nav/2026/7/settings", "2026", "7", body)
	w := httptest.NewRecorder()
	handler.PutSettings(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	saved := repo.settings[monthKey{2026, 7}]
	if saved == nil {
		t.Fatal("settings were not saved for 2026-07")
	}
	if saved.UserID != "default" {
		t.Errorf("userID = %q, want default", saved.UserID)
	}
}

func TestPutSettingsRejectsNegativeRate(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	body := `{"feeSettings":{"managementFeeRate":"-0.02"}}`
	req := navRequest(http.MethodPut, "/api/v1/nav/2026/7/settings", "2026", "7", body)
	w := httptest.NewRecorder()
	handler.PutSettings(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPutSettingsRejectsUnknownEnums(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	for _, body := range []string{
		`{"feeSettings":{"hurdleRateType":"quarterly"}}`,
		`{"feeSettings":{"feePaymentStatus":"pending"}}`,
	} {
		req := navRequest(http.MethodPut, "/api/v1/nav/2026/7/settings", "2026", "7", body)
		w := httptest.NewRecorder()
		handler.PutSettings(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestPutSettingsAcceptsKnownEnums(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	body := `{"feeSettings":{"hurdleRateType":"annual","feePaymentStatus":"partially_paid"}}`
	req := navRequest(http.MethodPut, "/api/v1/nav/2026/7/settings", "2026", "7", body)
	w := httptest.NewRecorder()
	handler.PutSettings(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestPutSettingsInvalidBody(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	req := navRequest(http.MethodPut, "/api/v1/nav/2026/7/settings", "2026", "7", "{not json")
	w := httptest.NewRecorder()
	handler.PutSettings(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCalculateMissingSettings(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	req := navRequest(http.MethodPost, "/api/v1/nav/2026/7/calculate", "2026", "7", "")
	w := httptest.NewRecorder()
	handler.Calculate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCalculateMissingPriorNav(t *testing.T) {
	repo := newMockNavRepo()
	repo.settings[monthKey{2026, 7}] = &domain.NAVSettings{
		UserID: "default", Year: 2026, Month: 7,
	}
	handler := NewNAVHandler(nav.NewService(repo))

	req := navRequest(http.MethodPost, "/api/v1/nav/2026/7/calculate", "2026", "7", "")
	w := httptest.NewRecorder()
	handler.Calculate(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestCalculateWithEstimate(t *testing.T) {
	repo := newMockNavRepo()
	repo.settings[monthKey{2026, 7}] = &domain.NAVSettings{
		UserID: "default", Year: 2026, Month: 7,
		Portfolio: domain.PortfolioAggregates{
			TotalTokensValue:    decimal.NewFromInt(60000),
			TotalPositionsValue: decimal.NewFromInt(40000),
		},
	}
	handler := NewNAVHandler(nav.NewService(repo))

	req := navRequest(http.MethodPost, "/api/v1/nav/2026/7/calculate?estimate=true", "2026", "7", "")
	w := httptest.NewRecorder()
	handler.Calculate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var res domain.NAVCalculationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.PriorPreFeeNavSource != domain.PriorNavPortfolioEstimate {
		t.Errorf("source = %q, want portfolio_estimate", res.PriorPreFeeNavSource)
	}
}

func TestGetResultNotFound(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	req := navRequest(http.MethodGet, "/api/v1/nav/2026/7", "2026", "7", "")
	w := httptest.NewRecorder()
	handler.GetResult(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestYearMonthValidation(t *testing.T) {
	handler := NewNAVHandler(nav.NewService(newMockNavRepo()))

	for _, tc := range []struct {
		year, month string
	}{
		{"abcd", "7"},
		{"2026", "13"},
		{"2026", "0"},
		{"1800", "7"},
	} {
		req := navRequest(http.MethodGet, "/api/v1/nav/x/y", tc.year, tc.month, "")
		w := httptest.NewRecorder()
		handler.GetResult(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("year=%s month=%s: status = %d, want 400", tc.year, tc.month, w.Code)
		}
	}
}
