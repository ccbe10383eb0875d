package inventory

import (
	"context"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListVMFolders lists VM folders below each endpoint's base folder. With
// folder names given, only the names that exist on an endpoint are returned
// for it; without, every endpoint contributes its immediate child folders.
func (s *Service) ListVMFolders(ctx context.Context, selected string, folders []string) (*aggregate.Result[models.VMFolder], error) {
	var names []string
	if len(folders) > 0 {
		names = folders
	}

	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.VMFolder, error) {
			raw, err := client.VMFolders(ctx, names)
			if err != nil {
				return nil, err
			}

			out := make([]models.VMFolder, 0, len(raw))
			for _, f := range raw {
				out = append(out, models.VMFolder{
					VCenter: name,
					Name:    f,
				})
			}
			return out, nil
		})
}
