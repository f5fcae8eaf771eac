package transport

import (
	"fmt"
	"net/http"
	"time"

	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/domain"
)

// parsePeriod читает ?from=&to= в формате YYYY-MM-DD или RFC3339.
// Дата в to включает весь день.
func parsePeriod(r *http.Request) (in.Period, error) {
	var p in.Period
	q := r.URL.Query()

	if raw := q.Get("from"); raw != "" {
		t, _, err := parseBound(raw)
		if err != nil {
			return p, fmt.Errorf("from: %w", err)
		}
		p.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, dateOnly, err := parseBound(raw)
		if err != nil {
			return p, fmt.Errorf("to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		p.To = t
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return p, fmt.Errorf("to is before from")
	}
	return p, nil
}

func parseBound(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", raw)
	}
	return t, false, nil
}

// handleUserReport обрабатывает GET /reports/users/{userId}
func (h *HTTPHandler) handleUserReport(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	period, err := parsePeriod(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	output, err := h.uc.UserReport.Execute(r.Context(), in.UserReportInput{
		Principal: p,
		UserID:    r.PathValue("userId"),
		Period:    period,
	})
	if err != nil {
		h.handleUseCaseError(w, r, "user_report", err)
		return
	}

	h.respondJSON(w, http.StatusOK, output)
}

func (h *HTTPHandler) dealerReport(w http.ResponseWriter, r *http.Request) (*in.DealerReport, bool) {
	p, ok := h.principal(w, r)
	if !ok {
		return nil, false
	}

	period, err := parsePeriod(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), "validation")
		return nil, false
	}

	report, err := h.uc.DealerReport.Execute(r.Context(), in.DealerReportInput{Principal: p, Period: period})
	if err != nil {
		h.handleUseCaseError(w, r, "dealer_report", err)
		return nil, false
	}
	return report, true
}

// handleDealerReport обрабатывает GET /reports/dealer
func (h *HTTPHandler) handleDealerReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.dealerReport(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// handleDealerSalesExport обрабатывает GET /reports/dealer/sales.xlsx
func (h *HTTPHandler) handleDealerSalesExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.dealerReport(w, r)
	if !ok {
		return
	}

	body, err := salesWorkbook(report)
	if err != nil {
		h.handleUseCaseError(w, r, "export_sales", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="sales.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
