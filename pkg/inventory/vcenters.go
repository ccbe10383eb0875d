package inventory

import (
	"vcbridge/pkg/models"
)

// ListVCenters describes the configured endpoints. With selected set only
// that endpoint is returned; an unknown name yields an empty list. This is
// static configuration, no session is needed.
func (s *Service) ListVCenters(selected string) []models.VCenterInfo {
	endpoints := s.fanout.Pool().Endpoints()

	out := make([]models.VCenterInfo, 0, endpoints.Len())
	for _, name := range endpoints.Names() {
		if selected != "" && name != selected {
			continue
		}
		ep, _ := endpoints.Get(name)
		out = append(out, models.VCenterInfo{
			Name:        ep.Name,
			HostName:    ep.Hostname,
			Port:        ep.Port,
			Description: ep.Description,
		})
	}
	return out
}
