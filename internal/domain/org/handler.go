package org

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
	api.GET("/organization", h.GetOrganization)
	api.PUT("/organization", h.UpdateOrganization)
	api.GET("/team", h.ListTeam)
	api.POST("/team", h.Invite)
	api.PUT("/team/:id/role", h.ChangeRole)
	api.PUT("/team/:id/active", h.SetActive)
}

func caller(c echo.Context) (authz.Caller, error) {
	cl, ok := authz.CallerFromContext(c.Request().Context())
	if !ok {
		return authz.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return cl, nil
}

func (h *Handler) GetOrganization(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Organization(c.Request().Context(), cl)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateOrganization(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateOrganization(c.Request().Context(), cl, &o)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) ListTeam(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTeam(c.Request().Context(), cl, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type inviteRequest struct {
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      authz.Role `json:"role"`
	Password  string     `json:"password"`
}

func (h *Handler) Invite(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u := &User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}
	if err := h.svc.Invite(c.Request().Context(), cl, u, req.Password); err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, u)
}

type roleRequest struct {
	Role authz.Role `json:"role"`
}

func (h *Handler) ChangeRole(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.ChangeRole(c.Request().Context(), cl, id, req.Role)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, u)
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) SetActive(c echo.Context) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetActive(c.Request().Context(), cl, id, req.Active); err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusForbidden, "not allowed")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
