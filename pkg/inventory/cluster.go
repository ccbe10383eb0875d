package inventory

import (
	"context"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListClusters lists compute clusters across endpoints.
func (s *Service) ListClusters(ctx context.Context, selected string) (*aggregate.Result[models.Cluster], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Cluster, error) {
			raw, err := client.Clusters(ctx)
			if err != nil {
				return nil, err
			}

			out := make([]models.Cluster, 0, len(raw))
			for _, c := range raw {
				out = append(out, models.Cluster{
					VCenter: name,
					Name:    c.Name,
					Status:  c.Status,
					Hosts:   c.Hosts,
				})
			}
			return out, nil
		})
}
