package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medtrack/careportal/internal/core/domain"
)

// WakeEnqueuer accepts background wake signals.
type WakeEnqueuer interface {
	Enqueue(wake domain.WakeSignal) bool
}

// NotificationLister exposes recently shown local notifications.
type NotificationLister interface {
	Recent() ([]domain.Notification, int)
}

// DeviceHandler backs the device page that exercises the background
// notification hook.
type DeviceHandler struct {
	wake          WakeEnqueuer
	notifications NotificationLister
}

func NewDeviceHandler(wake WakeEnqueuer, notifications NotificationLister) *DeviceHandler {
	return &DeviceHandler{wake: wake, notifications: notifications}
}

type devicePageData struct {
	Sent   int                   `json:"sent"`
	Recent []domain.Notification `json:"recent"`
}

// Page lists recent local notifications.
//
// @Summary      Device page
// @Tags         device
// @Produce      json
// @Success      200  {object}  pageView
// @Router       /capacitor [get]
func (h *DeviceHandler) Page(c echo.Context) error {
	snap, err := ctxSession(c)
	if err != nil {
		return err
	}
	recent, sent := h.notifications.Recent()
	return c.JSON(http.StatusOK, pageView{
		Page:  "capacitor",
		Title: "Device",
		User:  snap.User,
		Data:  devicePageData{Sent: sent, Recent: recent},
	})
}

// Wake triggers the background notification hook once.
//
// @Summary      Trigger a background wake
// @Tags         device
// @Produce      json
// @Success      202  {object}  acceptedResponse
// @Failure      503  {object}  errorResponse
// @Router       /capacitor/wake [post]
func (h *DeviceHandler) Wake(c echo.Context) error {
	if !h.wake.Enqueue(domain.WakeSignal{At: time.Now(), Source: "portal"}) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notification queue full")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "wake accepted"})
}
