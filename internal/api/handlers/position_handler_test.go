package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"margintrade/internal/models"
	"margintrade/internal/repository"
	"margintrade/internal/service"
)

// muxRequest добавляет path variables так, как их видит handler под gorilla/mux
func muxRequest(r *http.Request, vars map[string]string) *http.Request {
	return mux.SetURLVars(r, vars)
}

func TestPositionHandler_ClosePosition_Success(t *testing.T) {
	closePrice := 60150.0
	pnl := 148.0
	mock := &MockPositionService{
		position: &models.Position{
			ID:         "pos-1",
			Symbol:     "BTCUSDT",
			Status:     models.PositionStatusClosed,
			Reason:     models.CloseReasonManual,
			ClosePrice: &closePrice,
			Pnl:        &pnl,
		},
	}
	handler := NewPositionHandler(mock)

	req := withUser(httptest.NewRequest("POST", "/api/positions/pos-1/close", nil), 7)
	req = muxRequest(req, map[string]string{"id": "pos-1"})
	rec := httptest.NewRecorder()

	handler.ClosePosition(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if mock.closedID != "pos-1" {
		t.Errorf("expected close of pos-1, got %q", mock.closedID)
	}
}

func TestPositionHandler_ClosePosition_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", repository.ErrPositionNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"already closed", repository.ErrPositionAlreadyClosed, http.StatusConflict},
		{"no quote", service.ErrPriceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPositionHandler(&MockPositionService{err: tt.err})

			req := withUser(httptest.NewRequest("POST", "/api/positions/pos-1/close", nil), 7)
			req = muxRequest(req, map[string]string{"id": "pos-1"})
			rec := httptest.NewRecorder()

			handler.ClosePosition(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestPositionHandler_GetPositions_Open(t *testing.T) {
	mock := &MockPositionService{
		positions: []*models.Position{
			{ID: "pos-1", Symbol: "BTCUSDT", Status: models.PositionStatusOpen},
			{ID: "pos-2", Symbol: "ETHUSDT", Status: models.PositionStatusOpen},
		},
	}
	handler := NewPositionHandler(mock)

	req := withUser(httptest.NewRequest("GET", "/api/positions?account_id=1", nil), 7)
	rec := httptest.NewRecorder()

	handler.GetPositions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp GetPositionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected 2 positions, got %d", resp.Total)
	}
}

func TestPositionHandler_GetPositions_ClosedWithLimit(t *testing.T) {
	mock := &MockPositionService{positions: []*models.Position{}}
	handler := NewPositionHandler(mock)

	req := withUser(httptest.NewRequest("GET", "/api/positions?account_id=1&status=closed&limit=25", nil), 7)
	rec := httptest.NewRecorder()

	handler.GetPositions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if mock.lastLimit != 25 {
		t.Errorf("expected limit 25 passed to service, got %d", mock.lastLimit)
	}
}

func TestPositionHandler_GetPositions_MissingAccountID(t *testing.T) {
	handler := NewPositionHandler(&MockPositionService{})

	req := withUser(httptest.NewRequest("GET", "/api/positions", nil), 7)
	rec := httptest.NewRecorder()

	handler.GetPositions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
