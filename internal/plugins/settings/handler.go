package settings

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/middleware"
	"github.com/keyxmakerx/adminconsole/internal/plugins/auth"
)

// Handler renders the settings page. Routes sit behind the auth guards.
type Handler struct {
	service SettingsService
}

// NewHandler creates a new settings handler.
func NewHandler(service SettingsService) *Handler {
	return &Handler{service: service}
}

// Show renders the backend settings (GET /dashboard/settings). An
// unreachable backend goes to the error handler; any other failed load
// renders the page with an "unable to load" notice.
func (h *Handler) Show(c echo.Context) error {
	snap, err := h.service.Load(c.Request().Context(), auth.GetSessionToken(c))
	if err != nil {
		if apperror.IsType(err, apperror.TypeUpstream) {
			return err
		}
		slog.Warn("loading settings", slog.Any("error", err))
		return middleware.Render(c, http.StatusOK, SettingsPage(nil))
	}
	return middleware.Render(c, http.StatusOK, SettingsPage(snap))
}
