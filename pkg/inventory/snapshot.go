package inventory

import (
	"context"
	"errors"
	"time"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// rootParentID marks snapshots at the top of a VM's tree.
const rootParentID int32 = -1

// ListSnapshots lists VM snapshots across endpoints, flattened out of the
// per-VM trees. folders restricts the listing the same way ListVMs does.
func (s *Service) ListSnapshots(ctx context.Context, selected string, folders []string) (*aggregate.Result[models.Snapshot], error) {
	if len(folders) == 0 {
		folders = []string{""}
	}

	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Snapshot, error) {
			var out []models.Snapshot
			for _, folder := range folders {
				trees, err := client.SnapshotTrees(ctx, folder)
				if err != nil {
					return nil, err
				}
				for _, tree := range trees {
					out = append(out, flattenTree(name, client.Datacenter(), folder, tree)...)
				}
			}
			return out, nil
		})
}

// GetSnapshotsByVM returns the flattened snapshot tree of one VM, looked up
// by instance UUID. An empty result means the VM does not exist or has no
// snapshots.
func (s *Service) GetSnapshotsByVM(ctx context.Context, selected, instanceUUID string) (*aggregate.Result[models.Snapshot], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.Snapshot, error) {
			tree, err := client.SnapshotTreesByUUID(ctx, instanceUUID)
			if err != nil {
				if errors.Is(err, vsphere.ErrObjectNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return flattenTree(name, client.Datacenter(), "", *tree), nil
		})
}

func flattenTree(vcenter, datacenter, folder string, tree vsphere.VMSnapshots) []models.Snapshot {
	meta := models.Snapshot{
		VCenter:        vcenter,
		Datacenter:     datacenter,
		VMInstanceUUID: tree.VMInstanceUUID,
		VMName:         tree.VMName,
		VMFolder:       folder,
	}
	return flatten(meta, tree.Roots, rootParentID)
}

// flatten walks one level of the snapshot tree depth-first. Each node is
// emitted before its children so a child always follows its parent in the
// output.
func flatten(meta models.Snapshot, nodes []vsphere.SnapshotNode, parentID int32) []models.Snapshot {
	var out []models.Snapshot
	for _, node := range nodes {
		snap := meta
		snap.ID = node.ID
		snap.ParentID = parentID
		snap.Name = node.Name
		snap.Description = node.Description
		snap.CreateTime = node.CreateTime.Format(time.RFC3339)
		snap.HasChild = len(node.Children) > 0

		out = append(out, snap)
		out = append(out, flatten(meta, node.Children, node.ID)...)
	}
	return out
}
