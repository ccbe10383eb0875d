package server

import (
	"github.com/labstack/echo/v4"

	"vcbridge/pkg/aggregate"
)

// listVMs handles GET /api/v1/vms.
func (s *Server) listVMs(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListVMs(c.Request().Context(), p.VCenter, queryList(c, "vm_folders"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// getVM handles GET /api/v1/vms/:uuid. The UUID is the VM instance UUID;
// an empty merged result means no endpoint knows it.
func (s *Server) getVM(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.GetVMByUUID(c.Request().Context(), p.VCenter, c.Param("uuid"))
	if err != nil {
		return s.fail(c, err)
	}
	if len(result.Items) == 0 {
		return s.notFound(c, "virtual machine not found")
	}

	return s.respond(c, result.Items, nil)
}
