package inventory

import (
	"context"
	"errors"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/models"
	"vcbridge/pkg/vsphere"
)

// ListVMs lists virtual machines across endpoints. folders restricts the
// listing to the named folders below each endpoint's base VM folder; an
// empty list means everything.
func (s *Service) ListVMs(ctx context.Context, selected string, folders []string) (*aggregate.Result[models.VM], error) {
	if len(folders) == 0 {
		folders = []string{""}
	}

	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.VM, error) {
			var out []models.VM
			for _, folder := range folders {
				raw, err := client.VirtualMachines(ctx, folder)
				if err != nil {
					return nil, err
				}
				for _, vm := range raw {
					out = append(out, mapVM(name, client.Datacenter(), folder, vm))
				}
			}
			return out, nil
		})
}

// GetVMByUUID looks a VM up by instance UUID on every endpoint (or the
// selected one). Endpoints that do not know the UUID contribute nothing; an
// empty result means the VM does not exist anywhere.
func (s *Service) GetVMByUUID(ctx context.Context, selected, instanceUUID string) (*aggregate.Result[models.VM], error) {
	return aggregate.Collect(ctx, s.fanout, selected,
		func(ctx context.Context, name string, client vsphere.Client) ([]models.VM, error) {
			vm, err := client.VirtualMachineByUUID(ctx, instanceUUID)
			if err != nil {
				if errors.Is(err, vsphere.ErrObjectNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return []models.VM{mapVM(name, client.Datacenter(), "", *vm)}, nil
		})
}

func mapVM(vcenter, datacenter, folder string, vm vsphere.VirtualMachine) models.VM {
	disks := make([]models.DiskDevice, 0, len(vm.DiskDevices))
	for _, d := range vm.DiskDevices {
		disks = append(disks, models.DiskDevice{
			Label:     d.Label,
			Datastore: d.Datastore,
			SizeGB:    int(d.CapacityKB / (1024 * 1024)),
		})
	}

	nics := make([]models.NetworkDevice, 0, len(vm.NetworkDevices))
	for _, n := range vm.NetworkDevices {
		nics = append(nics, models.NetworkDevice{
			Label:          n.Label,
			MacAddress:     n.MacAddress,
			Portgroup:      n.Portgroup,
			Connected:      n.Connected,
			StartConnected: n.StartConnected,
		})
	}

	return models.VM{
		VCenter:        vcenter,
		Datacenter:     datacenter,
		Cluster:        vm.Cluster,
		ESXiHostname:   vm.ESXiHostname,
		Hostname:       vm.Hostname,
		IPAddress:      vm.IPAddress,
		VMFolder:       folder,
		PowerState:     vm.PowerState,
		DiskDevices:    disks,
		NetworkDevices: nics,
		UUID:           vm.UUID,
		InstanceUUID:   vm.InstanceUUID,
		Name:           vm.Name,
		NumCPU:         vm.NumCPU,
		MemorySizeMB:   vm.MemorySizeMB,
		Template:       vm.Template,
		VMPathName:     vm.VMPathName,
		GuestFullName:  vm.GuestFullName,
		HWVersion:      vm.HWVersion,
	}
}
