package audit

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abaworks/aba/internal/platform/authz"
	"github.com/abaworks/aba/pkg/pagination"
)

// Handler exposes the admin-only audit log listing.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-logs", h.List)
}

func (h *Handler) List(c echo.Context) error {
	caller, ok := authz.CallerFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if !authz.CanViewAuditLogs(caller) {
		return echo.NewHTTPError(http.StatusForbidden, "audit logs are admin-only")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.repo.List(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "audit logs are admin-only")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
