package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vcbridge/pkg/log"
)

// healthcheck handles GET /api/v1/healthcheck. It reports the liveness
// record of every endpoint; a liveness-store outage makes the service
// unhealthy even though sessions may still work, because dead-marking is
// broken without it.
func (s *Server) healthcheck(c echo.Context) error {
	records, err := s.pool.Store().GetAll(c.Request().Context())
	if err != nil {
		return s.failWith(c, http.StatusServiceUnavailable, "liveness store unreachable: "+err.Error())
	}

	statuses := make(map[string]string, s.pool.Endpoints().Len())
	for _, name := range s.pool.Endpoints().Names() {
		if status, ok := records[name]; ok && status != "" {
			statuses[name] = string(status)
		} else {
			statuses[name] = "unknown"
		}
	}
	return s.respond(c, statuses, nil)
}

// flushCache handles POST /api/v1/admin/cache/flush.
func (s *Server) flushCache(c echo.Context) error {
	if s.cache == nil || !s.cache.Enabled() {
		return s.respond(c, map[string]int{"removed": 0}, nil)
	}

	removed, err := s.cache.Flush(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}

	log.Info().Int("removed", removed).Msg("Response cache flushed")
	return s.respond(c, map[string]int{"removed": removed}, nil)
}

// resetSessions handles POST /api/v1/admin/sessions/reset: drop every
// session and liveness record so the next request reconnects from scratch.
func (s *Server) resetSessions(c echo.Context) error {
	ctx := c.Request().Context()

	s.pool.Close(ctx)
	if err := s.pool.Store().RemoveAll(ctx); err != nil {
		return s.fail(c, err)
	}

	log.Info().Msg("Sessions and liveness records reset")
	return s.respond(c, map[string]string{"status": "reset"}, nil)
}
