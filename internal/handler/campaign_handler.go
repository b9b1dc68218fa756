// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dmvprep-mailer/internal/errors"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
	"github.com/unclebandit/dmvprep-mailer/internal/service"
)

// CampaignHandler holds the dependencies for the read-only campaign
// endpoints
type CampaignHandler struct {
	Service *service.CampaignService
	Logger  *zap.Logger
}

// NewCampaignHandler creates a new CampaignHandler with the given service
func NewCampaignHandler(svc *service.CampaignService, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Logger: logging.OrNop(logger)}
}

// GetCampaignHandlerWithStats returns a campaign with its ledger counts
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		h.fail(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// ListSentEmailsHandler returns a paginated page of the campaign's ledger
func (h *CampaignHandler) ListSentEmailsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := campaignID(w, r)
	if !ok {
		return
	}

	page := 1
	pageSize := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}

	rows, pagination, err := h.Service.ListSentEmails(r.Context(), id, page, pageSize)
	if err != nil {
		h.fail(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data":       rows,
		"pagination": pagination,
	})
}

func campaignID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *CampaignHandler) fail(w http.ResponseWriter, id int64, err error) {
	if appErrors.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.Logger.Error("❌ failed to fetch campaign", zap.Int64("campaign_id", id), zap.Error(err))
	http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
}
