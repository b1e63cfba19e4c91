package appointment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appq/appq/internal/platform/auth"
	"github.com/appq/appq/pkg/apperrors"
	"github.com/appq/appq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListOwn)
	api.POST("/appointments", h.Create)
	api.GET("/appointments/scheduled", h.ListScheduled)
	api.GET("/appointments/unscheduled", h.ListUnscheduled)
	api.GET("/appointments/:id", h.Get)
	api.POST("/appointments/:id/check-in", h.CheckIn)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/activate", h.Activate)
	api.POST("/appointments/:id/move", h.Move)
}

func actorFrom(c echo.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return actor, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(c.Request().Context(), actor, req)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListOwn(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOwn(c.Request().Context(), actor,
		c.QueryParam("type"), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) ListScheduled(c echo.Context) error {
	return h.listQueue(c, ScopeScheduled)
}

func (h *Handler) ListUnscheduled(c echo.Context) error {
	return h.listQueue(c, ScopeUnscheduled)
}

// listQueue accepts category_id repeated (?category_id=a&category_id=b).
func (h *Handler) listQueue(c echo.Context, scope Scope) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var categoryIDs []uuid.UUID
	for _, raw := range c.QueryParams()["category_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
				"errors": map[string][]string{"category_id": {"Must be a valid UUID."}},
			})
		}
		categoryIDs = append(categoryIDs, id)
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListQueue(c.Request().Context(), actor, scope, categoryIDs,
		c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.updateStatus(c, h.svc.CheckIn)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.updateStatus(c, h.svc.Cancel)
}

type statusFunc func(ctx context.Context, actor auth.Actor, id uuid.UUID) (string, error)

func (h *Handler) updateStatus(c echo.Context, fn statusFunc) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	msg, err := fn(c.Request().Context(), actor, id)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": msg})
}

func (h *Handler) Activate(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Activate(c.Request().Context(), actor, id)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type moveRequest struct {
	PreviousAppointmentID *uuid.UUID `json:"previous_appointment_id"`
}

func (h *Handler) Move(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req moveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Move(c.Request().Context(), actor, id, req.PreviousAppointmentID); err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{})
}
