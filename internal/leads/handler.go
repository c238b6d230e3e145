package leads

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/madhasoeki/scalevxmailketing/platform/apperr"
	"github.com/madhasoeki/scalevxmailketing/platform/httpkit"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// HTTPHandler exposes the admin read/ops endpoints for the lead ledger.
type HTTPHandler struct {
	service *Service
	log     *logger.Logger
}

// NewHTTPHandler creates the leads HTTP handler.
func NewHTTPHandler(service *Service, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, log: log}
}

type leadResponse struct {
	ID                 uuid.UUID       `json:"id"`
	RuleID             *uuid.UUID      `json:"rule_id"`
	OrderID            string          `json:"order_id"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	HandlerName        string          `json:"handler_name"`
	HandlerEmail       string          `json:"handler_email"`
	Status             string          `json:"status"`
	OrderData          json.RawMessage `json:"order_data,omitempty"`
	FollowUpStart      time.Time       `json:"follow_up_start"`
	ClosedAt           *time.Time      `json:"closed_at"`
	SentToMailketing   bool            `json:"sent_to_mailketing"`
	SentToMailketingAt *time.Time      `json:"sent_to_mailketing_at"`
	MailketingListID   string          `json:"mailketing_list_id"`
	CreatedAt          time.Time       `json:"created_at"`
}

type historyResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

func toLeadResponse(l Lead, withOrderData bool) leadResponse {
	resp := leadResponse{
		ID:                 l.ID,
		RuleID:             l.RuleID,
		OrderID:            l.OrderID,
		Name:               l.Name,
		Email:              l.Email,
		Phone:              l.Phone,
		HandlerName:        l.HandlerName,
		HandlerEmail:       l.HandlerEmail,
		Status:             l.Status,
		FollowUpStart:      l.FollowUpStart,
		ClosedAt:           l.ClosedAt,
		SentToMailketing:   l.SentToMailketing,
		SentToMailketingAt: l.SentToMailketingAt,
		MailketingListID:   l.MailketingListID,
		CreatedAt:          l.CreatedAt,
	}
	if withOrderData {
		resp.OrderData = l.OrderData
	}
	return resp
}

func (h *HTTPHandler) list(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", StatusFollowUp, StatusClosing, StatusNotClosing:
	default:
		httpkit.Error(c, http.StatusBadRequest, "unknown status filter", nil)
		return
	}

	all, err := h.service.List(c.Request.Context(), status)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list leads", err).WithOp("leads.list"))
		return
	}
	out := make([]leadResponse, 0, len(all))
	for _, l := range all {
		out = append(out, toLeadResponse(l, false))
	}
	httpkit.JSON(c, http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	lead, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, "leads.get", err)
		return
	}
	history, err := h.service.History(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, "leads.history", err)
		return
	}
	entries := make([]historyResponse, 0, len(history))
	for _, e := range history {
		entries = append(entries, historyResponse{
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Notes:      e.Notes,
			CreatedAt:  e.CreatedAt,
		})
	}
	httpkit.JSON(c, http.StatusOK, gin.H{
		"lead":    toLeadResponse(lead, true),
		"history": entries,
	})
}

func (h *HTTPHandler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to load lead stats", err).WithOp("leads.stats"))
		return
	}
	httpkit.JSON(c, http.StatusOK, stats)
}

type closePayload struct {
	Notes string `json:"notes"`
}

// close moves a follow_up lead to not_closing manually.
func (h *HTTPHandler) close(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var payload closePayload
	_ = c.ShouldBindJSON(&payload)
	notes := payload.Notes
	if notes == "" {
		notes = "Closed manually by admin"
	}

	lead, moved, err := h.service.CloseAsNotClosing(c.Request.Context(), id, notes)
	if err != nil {
		h.handleServiceError(c, "leads.close", err)
		return
	}
	if !moved {
		httpkit.HandleError(c, apperr.Conflict("lead is not in follow_up"))
		return
	}
	h.log.Info("lead closed manually", "lead_id", id)
	httpkit.JSON(c, http.StatusOK, toLeadResponse(lead, false))
}

// resync retries the mail-platform push for a lead.
func (h *HTTPHandler) resync(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	lead, err := h.service.Resync(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			httpkit.HandleError(c, apperr.NotFound("lead not found"))
			return
		}
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "sync failed", err).WithOp("leads.resync"))
		return
	}
	httpkit.JSON(c, http.StatusOK, toLeadResponse(lead, false))
}

func (h *HTTPHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) handleServiceError(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrLeadNotFound) {
		httpkit.HandleError(c, apperr.NotFound("lead not found"))
		return
	}
	httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "lead storage failure", err).WithOp(op))
}
