package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"vcbridge/pkg/inventory"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type listParams struct {
	Offset  int
	Limit   int
	VCenter string
}

// bindListParams parses the shared query parameters of list endpoints.
// Malformed values are a client error, reported as 422 by the caller.
func bindListParams(c echo.Context) (listParams, error) {
	p := listParams{Limit: defaultLimit, VCenter: c.QueryParam("vcenter")}

	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return p, fmt.Errorf("offset must be a non-negative integer, got %q", raw)
		}
		p.Offset = offset
	}

	if raw := c.QueryParam("max_results"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return p, fmt.Errorf("max_results must be between 1 and %d, got %q", maxLimit, raw)
		}
		p.Limit = limit
	}

	return p, nil
}

// bindTimeWindow parses the alarm/event window parameters. Mode conflicts
// are left to TimeWindowParams.Resolve; only syntax is checked here.
func bindTimeWindow(c echo.Context) (inventory.TimeWindowParams, error) {
	var p inventory.TimeWindowParams

	if raw := c.QueryParam("begin"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return p, fmt.Errorf("begin must be RFC3339, got %q", raw)
		}
		p.Begin = &t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return p, fmt.Errorf("end must be RFC3339, got %q", raw)
		}
		p.End = &t
	}
	var err error
	if p.DaysAgoBegin, err = intParam(c, "days_ago_begin"); err != nil {
		return p, err
	}
	if p.DaysAgoEnd, err = intParam(c, "days_ago_end"); err != nil {
		return p, err
	}
	if p.HoursAgoBegin, err = intParam(c, "hours_ago_begin"); err != nil {
		return p, err
	}
	if p.HoursAgoEnd, err = intParam(c, "hours_ago_end"); err != nil {
		return p, err
	}

	return p, nil
}

func intParam(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}

// queryList returns all values of a repeatable query parameter.
func queryList(c echo.Context, name string) []string {
	return c.QueryParams()[name]
}
