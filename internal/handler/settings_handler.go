package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/face-attendance-api/internal/service"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/response"
)

// SettingsHandler exposes the notification settings endpoints.
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get godoc
// @Summary Get notification settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/notifications [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.NotificationSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Update godoc
// @Summary Update notification settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body service.UpdateNotificationSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /settings/notifications [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req service.UpdateNotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	settings, err := h.settings.UpdateNotificationSettings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
