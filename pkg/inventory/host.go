package inventory

import (
	"context"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListHosts lists ESXi hosts across endpoints.
func (s *Service) ListHosts(ctx context.Context, selected string) (*aggregate.Result[models.Host], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Host, error) {
			raw, err := client.Hosts(ctx)
			if err != nil {
				return nil, err
			}

			out := make([]models.Host, 0, len(raw))
			for _, h := range raw {
				out = append(out, models.Host{
					VCenter: name,
					Name:    h.Name,
					MoID:    h.MoID,
					Tags:    h.Tags,
				})
			}
			return out, nil
		})
}
