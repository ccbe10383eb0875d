package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/log"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Results         any                   `json:"results"`
	Success         bool                  `json:"success"`
	Message         string                `json:"message,omitempty"`
	Pagination      *aggregate.Pagination `json:"pagination,omitempty"`
	VCenterSessions map[string]string     `json:"vcenterSessions,omitempty"`
	Timestamp       string                `json:"timestamp"`
	RequestID       string                `json:"requestId,omitempty"`
}

func (s *Server) respond(c echo.Context, results any, page *aggregate.Pagination) error {
	return c.JSON(http.StatusOK, Response{
		Results:         results,
		Success:         true,
		Pagination:      page,
		VCenterSessions: s.sessionStatuses(c.Request().Context()),
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		RequestID:       c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

func (s *Server) failWith(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

// sessionStatuses reports the liveness record of every configured endpoint.
// A store hiccup degrades to omitting the map rather than failing the
// request that carries it.
func (s *Server) sessionStatuses(ctx context.Context) map[string]string {
	records, err := s.pool.Store().GetAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read session statuses")
		return nil
	}

	out := make(map[string]string, s.pool.Endpoints().Len())
	for _, name := range s.pool.Endpoints().Names() {
		status, ok := records[name]
		if !ok || status == liveness.StatusUnknown {
			out[name] = "unknown"
			continue
		}
		out[name] = string(status)
	}
	return out
}
