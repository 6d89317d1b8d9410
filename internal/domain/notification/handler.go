package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/abaworks/aba/internal/platform/authz"
	"github.com/abaworks/aba/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.PUT("/notifications/:id/read", h.MarkRead)
	api.PUT("/notifications/read-all", h.MarkAllRead)
}

func caller(c echo.Context) (authz.Caller, error) {
	cl, ok := authz.CallerFromContext(c.Request().Context())
	if !ok {
		return authz.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return cl, nil
}

func (h *Handler) List(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	unreadOnly := c.QueryParam("unread") == "true"
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), cl, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	// Another user's notification reads as missing, not forbidden.
	if err := h.svc.MarkRead(c.Request().Context(), cl, id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), cl); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
