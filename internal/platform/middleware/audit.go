package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/appq/appq/internal/platform/auth"
)

// AuditEntry describes one state-changing API call.
type AuditEntry struct {
	Timestamp  time.Time
	RequestID  string
	UserID     string
	Tenant     string
	Action     string
	Resource   string
	ResourceID string
	Method     string
	Path       string
	Status     int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit emits an "audit" event for every mutating /api/v1 request after the
// handler has run. Reads are not audited.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				UserID:     auth.UserIDFromContext(req.Context()),
				Method:     req.Method,
				Path:       req.URL.Path,
				Status:     status,
				ResourceID: c.Param("id"),
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.Tenant, _ = c.Get("tenant_id").(string)
			entry.Resource, entry.Action = describeRoute(req.Method, req.URL.Path)

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("tenant", entry.Tenant).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("path", entry.Path).
				Int("status", entry.Status).
				Msg("audit")

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, "/api/v1/") {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// describeRoute derives resource and action from the URL:
//
//	POST /api/v1/appointments               -> appointments, create
//	POST /api/v1/appointments/<id>/move     -> appointments, move
//	PUT  /api/v1/categories/<id>/hours      -> categories, hours
//	PUT  /api/v1/categories/<id>            -> categories, update
func describeRoute(method, path string) (resource, action string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	resource = segments[0]
	if resource == "" {
		resource = "unknown"
	}
	if len(segments) >= 3 {
		return resource, segments[len(segments)-1]
	}
	switch method {
	case http.MethodPost:
		return resource, "create"
	case http.MethodDelete:
		return resource, "delete"
	default:
		return resource, "update"
	}
}
