package organization

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/appq/appq/internal/platform/auth"
	"github.com/appq/appq/internal/platform/scheduling"
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
	api.GET("/organizations", h.ListOrganizations)
	api.GET("/organizations/active", h.ListActiveOrganizations)
	api.GET("/organizations/:id", h.GetOrganization)
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/active", h.ListActiveCategories)
	api.GET("/categories/:id", h.GetCategory)
	api.GET("/categories/:id/slots", h.AvailableSlots)

	staff := api.Group("", auth.RequireStaff())
	staff.POST("/organizations", h.CreateOrganization)
	staff.POST("/categories", h.CreateCategory)
	staff.PUT("/categories/:id/hours", h.UpdateCategoryHours)
}

// -- Organization Handlers --

type createOrganizationRequest struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Types     []string `json:"types"`
	GroupName *string  `json:"group_name"`
}

func (h *Handler) CreateOrganization(c echo.Context) error {
	var req createOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o := &Organization{Name: req.Name, Status: req.Status, Types: req.Types, GroupName: req.GroupName}
	if err := h.svc.CreateOrganization(c.Request().Context(), o); err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrganization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOrganization(c.Request().Context(), id)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	return h.listOrganizations(c, OrganizationFilter{
		Status: c.QueryParam("status"),
		Name:   c.QueryParam("name"),
		Type:   c.QueryParam("type"),
	})
}

func (h *Handler) ListActiveOrganizations(c echo.Context) error {
	return h.listOrganizations(c, OrganizationFilter{
		Status: StatusActive,
		Name:   c.QueryParam("name"),
		Type:   c.QueryParam("type"),
	})
}

func (h *Handler) listOrganizations(c echo.Context, f OrganizationFilter) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListOrganizations(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

// -- Category Handlers --

type createCategoryRequest struct {
	OrganizationID  uuid.UUID              `json:"organization_id"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description"`
	Type            *string                `json:"type"`
	Status          string                 `json:"status"`
	GroupName       *string                `json:"group_name"`
	OpeningHours    scheduling.WeeklyHours `json:"opening_hours"`
	BreakHours      scheduling.WeeklyHours `json:"break_hours"`
	IntervalMinutes int                    `json:"interval_minutes"`
	TimeZone        string                 `json:"time_zone"`
	MaxAdvanceDays  *int                   `json:"max_advance_days"`
	IsScheduled     bool                   `json:"is_scheduled"`
}

func (r createCategoryRequest) category() *Category {
	c := &Category{
		OrganizationID:  r.OrganizationID,
		Name:            r.Name,
		Description:     r.Description,
		Type:            r.Type,
		Status:          r.Status,
		GroupName:       r.GroupName,
		OpeningHours:    r.OpeningHours,
		BreakHours:      r.BreakHours,
		IntervalMinutes: r.IntervalMinutes,
		TimeZone:        r.TimeZone,
		MaxAdvanceDays:  DefaultMaxAdvanceDays,
		IsScheduled:     r.IsScheduled,
	}
	if r.MaxAdvanceDays != nil {
		c.MaxAdvanceDays = *r.MaxAdvanceDays
	}
	return c
}

func (h *Handler) CreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat := req.category()
	if err := h.svc.CreateCategory(c.Request().Context(), cat); err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategoryHours(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var u HoursUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cat, err := h.svc.UpdateCategoryHours(c.Request().Context(), id, u)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) GetCategory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cat, err := h.svc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *Handler) ListCategories(c echo.Context) error {
	return h.listCategories(c, c.QueryParam("status"))
}

func (h *Handler) ListActiveCategories(c echo.Context) error {
	return h.listCategories(c, StatusActive)
}

func (h *Handler) listCategories(c echo.Context, status string) error {
	orgIDs, err := parseIDList(c.QueryParam("organization_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"detail": "Invalid organization ID format. Expected UUID values.",
		})
	}
	f := CategoryFilter{OrganizationIDs: orgIDs, Status: status, Type: c.QueryParam("type")}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCategories(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

// parseIDList parses a comma separated list of UUIDs. Blank entries are
// skipped.
func parseIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slots, err := h.svc.AvailableSlots(c.Request().Context(), id, c.QueryParam("date"))
	if err != nil {
		return apperrors.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":  c.QueryParam("date"),
		"slots": slots,
	})
}
