package inventory

import (
	"context"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListPortGroups lists networks/portgroups across endpoints, with the same
// tag filter semantics as ListDatastores.
func (s *Service) ListPortGroups(ctx context.Context, selected, tagCategory string, tags []string) (*aggregate.Result[models.PortGroup], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.PortGroup, error) {
			raw, err := client.Networks(ctx)
			if err != nil {
				return nil, err
			}

			var index TagIndex
			if tagCategory != "" {
				index = s.tagIndex(ctx, name, vsphere.ObjectTypeNetwork)
			}

			seen := make(map[string]bool, len(raw))
			out := make([]models.PortGroup, 0, len(raw))
			for _, net := range raw {
				if seen[net.Name] {
					continue
				}
				seen[net.Name] = true

				record := models.PortGroup{
					VCenter: name,
					Name:    net.Name,
					Hosts:   net.Hosts,
				}

				if tagCategory != "" {
					matched, ok := matchTags(index, net.Name, tagCategory, tags)
					if !ok {
						continue
					}
					record.TagCategory = tagCategory
					record.Tags = matched
				}
				out = append(out, record)
			}
			return out, nil
		})
}
