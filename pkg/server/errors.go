package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/inventory"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/log"
)

// fail maps a service error to the API status codes: unknown endpoint 404,
// malformed window 422, store or endpoint outage 503, anything else 502.
func (s *Server) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, aggregate.ErrEndpointNotFound):
		return s.failWith(c, http.StatusNotFound, err.Error())

	case errors.Is(err, inventory.ErrTimeWindowConflict),
		errors.Is(err, inventory.ErrTimeWindowInvalid):
		return s.failWith(c, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, aggregate.ErrEndpointUnavailable),
		errors.Is(err, liveness.ErrUnavailable):
		return s.failWith(c, http.StatusServiceUnavailable, err.Error())

	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return s.failWith(c, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) invalid(c echo.Context, err error) error {
	return s.failWith(c, http.StatusUnprocessableEntity, err.Error())
}

func (s *Server) notFound(c echo.Context, message string) error {
	return s.failWith(c, http.StatusNotFound, message)
}
