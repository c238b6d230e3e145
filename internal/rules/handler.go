package rules

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/madhasoeki/scalevxmailketing/platform/apperr"
	"github.com/madhasoeki/scalevxmailketing/platform/httpkit"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
	"github.com/madhasoeki/scalevxmailketing/platform/validator"
)

// HTTPHandler exposes the admin CRUD endpoints for matching rules.
type HTTPHandler struct {
	repo      *Repository
	validator *validator.Validator
	log       *logger.Logger
}

// NewHTTPHandler creates the rules HTTP handler.
func NewHTTPHandler(repo *Repository, v *validator.Validator, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{repo: repo, validator: v, log: log}
}

type handlerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
}

type rulePayload struct {
	StoreID        string           `json:"store_id"`
	StoreName      string           `json:"store_name"`
	ProductName    string           `json:"product_name" validate:"required"`
	ProductID      string           `json:"product_id"`
	Handlers       []handlerPayload `json:"handlers" validate:"dive"`
	ListFollowUp   string           `json:"list_follow_up"`
	ListClosing    string           `json:"list_closing"`
	ListNotClosing string           `json:"list_not_closing"`
	IsActive       *bool            `json:"is_active"`
}

type ruleResponse struct {
	ID             uuid.UUID `json:"id"`
	StoreID        string    `json:"store_id"`
	StoreName      string    `json:"store_name"`
	ProductName    string    `json:"product_name"`
	ProductID      string    `json:"product_id"`
	Handlers       []Handler `json:"handlers"`
	ListFollowUp   string    `json:"list_follow_up"`
	ListClosing    string    `json:"list_closing"`
	ListNotClosing string    `json:"list_not_closing"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRuleResponse(r Rule) ruleResponse {
	return ruleResponse{
		ID:             r.ID,
		StoreID:        r.StoreID,
		StoreName:      r.StoreName,
		ProductName:    r.ProductName,
		ProductID:      r.ProductID,
		Handlers:       normalizeHandlers(r.Handlers),
		ListFollowUp:   r.ListFollowUp,
		ListClosing:    r.ListClosing,
		ListNotClosing: r.ListNotClosing,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (h *HTTPHandler) parseParams(c *gin.Context) (RuleParams, bool) {
	var payload rulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return RuleParams{}, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return RuleParams{}, false
	}

	handlers := make([]Handler, 0, len(payload.Handlers))
	for _, hp := range payload.Handlers {
		handlers = append(handlers, Handler{ID: hp.ID, Name: hp.Name, Email: hp.Email})
	}

	active := true
	if payload.IsActive != nil {
		active = *payload.IsActive
	}

	return RuleParams{
		StoreID:        payload.StoreID,
		StoreName:      payload.StoreName,
		ProductName:    payload.ProductName,
		ProductID:      payload.ProductID,
		Handlers:       handlers,
		ListFollowUp:   payload.ListFollowUp,
		ListClosing:    payload.ListClosing,
		ListNotClosing: payload.ListNotClosing,
		IsActive:       active,
	}, true
}

func (h *HTTPHandler) list(c *gin.Context) {
	ruleSet, err := h.repo.List(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to list rules", err).WithOp("rules.list"))
		return
	}
	out := make([]ruleResponse, 0, len(ruleSet))
	for _, r := range ruleSet {
		out = append(out, toRuleResponse(r))
	}
	httpkit.JSON(c, http.StatusOK, out)
}

func (h *HTTPHandler) get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	rule, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRepoError(c, "rules.get", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, toRuleResponse(rule))
}

func (h *HTTPHandler) create(c *gin.Context) {
	params, ok := h.parseParams(c)
	if !ok {
		return
	}
	rule, err := h.repo.Create(c.Request.Context(), params)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to create rule", err).WithOp("rules.create"))
		return
	}
	h.log.Info("matching rule created", "rule_id", rule.ID, "product_name", rule.ProductName)
	httpkit.JSON(c, http.StatusCreated, toRuleResponse(rule))
}

func (h *HTTPHandler) update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	params, ok := h.parseParams(c)
	if !ok {
		return
	}
	rule, err := h.repo.Update(c.Request.Context(), id, params)
	if err != nil {
		h.handleRepoError(c, "rules.update", err)
		return
	}
	h.log.Info("matching rule updated", "rule_id", rule.ID)
	httpkit.JSON(c, http.StatusOK, toRuleResponse(rule))
}

func (h *HTTPHandler) delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.handleRepoError(c, "rules.delete", err)
		return
	}
	h.log.Info("matching rule deleted", "rule_id", id)
	httpkit.OK(c, gin.H{"message": "rule deleted"})
}

func (h *HTTPHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandler) handleRepoError(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrRuleNotFound) {
		httpkit.HandleError(c, apperr.NotFound("rule not found"))
		return
	}
	httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "rule storage failure", err).WithOp(op))
}
