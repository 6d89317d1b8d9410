package plan

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
	api.GET("/treatment-plans", h.List)
	api.POST("/treatment-plans", h.Create)
	api.GET("/treatment-plans/:id", h.Get)
	api.PUT("/treatment-plans/:id", h.Update)
	api.DELETE("/treatment-plans/:id", h.Delete)

	api.POST("/treatment-plans/:id/submit", h.transitionHandler(ActionSubmit))
	api.POST("/treatment-plans/:id/approve", h.transitionHandler(ActionApprove))
	api.POST("/treatment-plans/:id/reject", h.transitionHandler(ActionReject))
	api.POST("/treatment-plans/:id/activate", h.transitionHandler(ActionActivate))
	api.POST("/treatment-plans/:id/archive", h.transitionHandler(ActionArchive))

	api.GET("/treatment-plans/:id/comments", h.ListComments)
	api.POST("/treatment-plans/:id/comments", h.AddComment)
	api.DELETE("/comments/:id", h.DeleteComment)
}

func callerOr401(c echo.Context) (authz.Caller, error) {
	caller, ok := authz.CallerFromContext(c.Request().Context())
	if !ok {
		return authz.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return caller, nil
}

// httpError maps domain errors onto status codes: permission failures are
// 403, bad transitions 409, concurrent transition races 409.
func httpError(err error) error {
	switch {
	case errors.Is(err, authz.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, "not allowed")
	case authz.IsInvalidTransition(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStatusConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusNotFound, "treatment plan not found")
	}
}

func (h *Handler) List(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), caller, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	var p TreatmentPlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), caller, &p); err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p TreatmentPlan
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	updated, err := h.svc.Update(c.Request().Context(), caller, &p)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) transitionHandler(action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := callerOr401(c)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		p, err := h.svc.transition(c.Request().Context(), caller, id, action)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

type commentRequest struct {
	Body string `json:"body"`
}

func (h *Handler) AddComment(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	comment, err := h.svc.AddComment(c.Request().Context(), caller, planID, req.Body)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *Handler) ListComments(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListComments(c.Request().Context(), caller, planID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteComment(c echo.Context) error {
	caller, err := callerOr401(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteComment(c.Request().Context(), caller, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
