package settings

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/madhasoeki/scalevxmailketing/internal/mailketing"
	"github.com/madhasoeki/scalevxmailketing/internal/scalev"
	"github.com/madhasoeki/scalevxmailketing/platform/apperr"
	"github.com/madhasoeki/scalevxmailketing/platform/httpkit"
	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

// HTTPHandler exposes the settings admin API plus the connectivity probes and
// Scalev browse proxies the rule-builder UI uses.
type HTTPHandler struct {
	repo       *Repository
	mailketing *mailketing.Client
	scalev     *scalev.Client
	log        *logger.Logger
}

// NewHTTPHandler creates the settings HTTP handler.
func NewHTTPHandler(repo *Repository, mk *mailketing.Client, sc *scalev.Client, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{repo: repo, mailketing: mk, scalev: sc, log: log}
}

type settingsResponse struct {
	ScalevAPIKey        string `json:"scalev_api_key"`
	ScalevWebhookSecret string `json:"scalev_webhook_secret"`
	MailketingAPIKey    string `json:"mailketing_api_key"`
}

// mask hides all but the last four characters of a credential.
func mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

func toResponse(s Settings) settingsResponse {
	return settingsResponse{
		ScalevAPIKey:        mask(s.ScalevAPIKey),
		ScalevWebhookSecret: mask(s.ScalevWebhookSecret),
		MailketingAPIKey:    mask(s.MailketingAPIKey),
	}
}

func (h *HTTPHandler) get(c *gin.Context) {
	s, err := h.repo.Get(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to load settings", err).WithOp("settings.get"))
		return
	}
	httpkit.JSON(c, http.StatusOK, toResponse(s))
}

type updatePayload struct {
	ScalevAPIKey        *string `json:"scalev_api_key"`
	ScalevWebhookSecret *string `json:"scalev_webhook_secret"`
	MailketingAPIKey    *string `json:"mailketing_api_key"`
}

func (h *HTTPHandler) update(c *gin.Context) {
	var payload updatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	s, err := h.repo.Update(c.Request.Context(), UpdateParams{
		ScalevAPIKey:        payload.ScalevAPIKey,
		ScalevWebhookSecret: payload.ScalevWebhookSecret,
		MailketingAPIKey:    payload.MailketingAPIKey,
	})
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to update settings", err).WithOp("settings.update"))
		return
	}
	h.log.Info("settings updated")
	httpkit.JSON(c, http.StatusOK, toResponse(s))
}

// testMailketing probes the Mailketing credentials by listing the account's
// subscriber lists.
func (h *HTTPHandler) testMailketing(c *gin.Context) {
	lists, err := h.mailketing.Lists(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "mailketing connection failed", err).WithOp("settings.test_mailketing"))
		return
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"status": "ok", "lists": lists})
}

// testScalev probes the Scalev credentials by listing stores.
func (h *HTTPHandler) testScalev(c *gin.Context) {
	stores, err := h.scalev.Stores(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "scalev connection failed", err).WithOp("settings.test_scalev"))
		return
	}
	httpkit.JSON(c, http.StatusOK, gin.H{"status": "ok", "stores": stores})
}

// Browse proxies for the rule builder.

func (h *HTTPHandler) listStores(c *gin.Context) {
	stores, err := h.scalev.Stores(c.Request.Context())
	if err != nil {
		h.handleUpstreamError(c, "settings.stores", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, stores)
}

func (h *HTTPHandler) listStoreProducts(c *gin.Context) {
	products, err := h.scalev.StoreProducts(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.handleUpstreamError(c, "settings.store_products", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, products)
}

func (h *HTTPHandler) listStoreSalesPeople(c *gin.Context) {
	people, err := h.scalev.StoreSalesPeople(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		h.handleUpstreamError(c, "settings.store_sales_people", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, people)
}

func (h *HTTPHandler) listProducts(c *gin.Context) {
	products, err := h.scalev.Products(c.Request.Context())
	if err != nil {
		h.handleUpstreamError(c, "settings.products", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, products)
}

func (h *HTTPHandler) listMailketingLists(c *gin.Context) {
	lists, err := h.mailketing.Lists(c.Request.Context())
	if err != nil {
		h.handleUpstreamError(c, "settings.mailketing_lists", err)
		return
	}
	httpkit.JSON(c, http.StatusOK, lists)
}

func (h *HTTPHandler) handleUpstreamError(c *gin.Context, op string, err error) {
	httpkit.HandleError(c, apperr.Wrap(apperr.KindBadRequest, "upstream request failed", err).WithOp(op))
}
