package inventory

import (
	"context"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

const bytesPerGB = int64(1) << 30

// ListDatastores lists datastores across endpoints. With tagCategory set
// the listing is restricted to datastores carrying that category; tags
// narrows it further to datastores carrying at least one of the given tags.
// Duplicate names within one endpoint collapse to the first occurrence.
func (s *Service) ListDatastores(ctx context.Context, selected, tagCategory string, tags []string) (*aggregate.Result[models.Datastore], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Datastore, error) {
			raw, err := client.Datastores(ctx)
			if err != nil {
				return nil, err
			}

			var index TagIndex
			if tagCategory != "" {
				index = s.tagIndex(ctx, name, vsphere.ObjectTypeDatastore)
			}

			seen := make(map[string]bool, len(raw))
			out := make([]models.Datastore, 0, len(raw))
			for _, ds := range raw {
				if seen[ds.Name] {
					continue
				}
				seen[ds.Name] = true

				record := models.Datastore{
					VCenter:     name,
					Name:        ds.Name,
					Type:        ds.Type,
					CapacityGB:  int(ds.CapacityBytes / bytesPerGB),
					FreeSpaceGB: int(ds.FreeBytes / bytesPerGB),
					Hosts:       ds.Hosts,
				}

				if tagCategory != "" {
					matched, ok := matchTags(index, ds.Name, tagCategory, tags)
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
