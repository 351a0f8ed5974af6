package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/middleware"
	"github.com/keyxmakerx/adminconsole/internal/plugins/auth"
	"github.com/keyxmakerx/adminconsole/internal/plugins/settings"
)

// Handler renders the dashboard pages.
type Handler struct {
	settings settings.SettingsService
}

// NewHandler creates a new dashboard handler.
func NewHandler(settingsSvc settings.SettingsService) *Handler {
	return &Handler{settings: settingsSvc}
}

// Home renders the dashboard overview (GET /dashboard). An unreachable
// backend goes to the error handler; unusable settings only hide that card.
func (h *Handler) Home(c echo.Context) error {
	snap, err := h.settings.Load(c.Request().Context(), auth.GetSessionToken(c))
	if err != nil {
		if apperror.IsType(err, apperror.TypeUpstream) {
			return err
		}
		slog.Warn("loading settings for dashboard", slog.Any("error", err))
		snap = nil
	}
	return middleware.Render(c, http.StatusOK, HomePage(auth.GetProfile(c), snap))
}

// Section renders one management area (GET /dashboard/:section).
func (h *Handler) Section(c echo.Context) error {
	section, ok := findSection(c.Param("section"))
	if !ok {
		return apperror.NewNotFound("page not found")
	}
	return middleware.Render(c, http.StatusOK, SectionPage(section))
}

// Profile renders the signed-in admin's cached profile (GET /dashboard/profile).
func (h *Handler) Profile(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, ProfilePage(auth.GetProfile(c)))
}
