package aireview

import (
	"errors"
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
	api.GET("/treatment-plans/:planID/ai-reviews", h.ListByPlan)
	api.POST("/treatment-plans/:planID/ai-reviews", h.Create)
	api.GET("/ai-reviews/:id", h.Get)
}

func caller(c echo.Context) (authz.Caller, error) {
	cl, ok := authz.CallerFromContext(c.Request().Context())
	if !ok {
		return authz.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return cl, nil
}

func (h *Handler) ListByPlan(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("planID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPlan(c.Request().Context(), cl, planID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Create(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("planID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plan id")
	}
	var rv Review
	if err := c.Bind(&rv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rv.PlanID = planID
	if err := h.svc.Create(c.Request().Context(), cl, &rv); err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *Handler) Get(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rv, err := h.svc.Get(c.Request().Context(), cl, id)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusNotFound, "review not found")
	}
	return c.JSON(http.StatusOK, rv)
}
