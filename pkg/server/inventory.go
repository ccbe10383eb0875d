package server

import (
	"github.com/labstack/echo/v4"

	"vcbridge/pkg/aggregate"
)

// listHosts handles GET /api/v1/hosts.
func (s *Server) listHosts(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListHosts(c.Request().Context(), p.VCenter)
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listClusters handles GET /api/v1/clusters.
func (s *Server) listClusters(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListClusters(c.Request().Context(), p.VCenter)
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listDatastores handles GET /api/v1/datastores. tag_category plus repeated
// tags parameters narrow the listing to tagged datastores.
func (s *Server) listDatastores(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListDatastores(c.Request().Context(), p.VCenter,
		c.QueryParam("tag_category"), queryList(c, "tags"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listVMFolders handles GET /api/v1/vm-folders. Repeated vm_folders
// parameters narrow the listing to the named folders.
func (s *Server) listVMFolders(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListVMFolders(c.Request().Context(), p.VCenter, queryList(c, "vm_folders"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listPortGroups handles GET /api/v1/portgroups.
func (s *Server) listPortGroups(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListPortGroups(c.Request().Context(), p.VCenter,
		c.QueryParam("tag_category"), queryList(c, "tags"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listSnapshots handles GET /api/v1/vm-snapshots.
func (s *Server) listSnapshots(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListSnapshots(c.Request().Context(), p.VCenter, queryList(c, "vm_folders"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// getSnapshots handles GET /api/v1/vm-snapshots/:uuid.
func (s *Server) getSnapshots(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.GetSnapshotsByVM(c.Request().Context(), p.VCenter, c.Param("uuid"))
	if err != nil {
		return s.fail(c, err)
	}
	if len(result.Items) == 0 {
		return s.notFound(c, "no snapshots for this virtual machine")
	}

	return s.respond(c, result.Items, nil)
}

// listAlarms handles GET /api/v1/alarms.
func (s *Server) listAlarms(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}
	window, err := bindTimeWindow(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListAlarms(c.Request().Context(), p.VCenter, window, queryList(c, "status"))
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listEvents handles GET /api/v1/events.
func (s *Server) listEvents(c echo.Context) error {
	p, err := bindListParams(c)
	if err != nil {
		return s.invalid(c, err)
	}
	window, err := bindTimeWindow(c)
	if err != nil {
		return s.invalid(c, err)
	}

	result, err := s.svc.ListEvents(c.Request().Context(), p.VCenter, window)
	if err != nil {
		return s.fail(c, err)
	}

	items, page := aggregate.Page(result.Items, p.Offset, p.Limit)
	return s.respond(c, items, &page)
}

// listVCenters handles GET /api/v1/vcenters. Static configuration, no
// sessions involved.
func (s *Server) listVCenters(c echo.Context) error {
	return s.respond(c, s.svc.ListVCenters(c.QueryParam("vcenter")), nil)
}
