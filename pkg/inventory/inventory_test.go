package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/config"
	"vcbridge/pkg/connector"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/vsphere"
)

// newService wires a Service over fake endpoints for the given names.
func newService(t *testing.T, dialer *vsphere.FakeDialer, names ...string) *Service {
	t.Helper()

	mr := miniredis.RunT(t)
	store := liveness.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	eps := make([]config.Endpoint, 0, len(names))
	for _, name := range names {
		eps = append(eps, config.Endpoint{
			Name: name, Hostname: name + ".local", Port: 443, Username: "ro", Password: "x",
			Description: "test endpoint " + name,
		})
	}
	endpoints, err := config.NewEndpoints(eps...)
	require.NoError(t, err)

	settings := config.DefaultSettings()
	settings.RetryInterval = time.Millisecond
	settings.MaxRetries = 1

	pool := connector.New(endpoints, dialer, store, settings)
	return New(aggregate.New(pool, settings), dialer)
}

func TestListVMsByFolder(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	client := vsphere.NewFakeClient("dc-a")
	client.VMsByFolder = map[string][]vsphere.VirtualMachine{
		"prod": {{Name: "web01", InstanceUUID: "u-web01"}},
		"dev":  {{Name: "db01", InstanceUUID: "u-db01"}},
	}
	dialer.Clients["vc-a"] = client
	svc := newService(t, dialer, "vc-a")

	result, err := svc.ListVMs(context.Background(), "", []string{"prod", "dev"})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	require.Equal(t, "web01", result.Items[0].Name)
	require.Equal(t, "prod", result.Items[0].VMFolder)
	require.Equal(t, "dc-a", result.Items[0].Datacenter)
	require.Equal(t, "vc-a", result.Items[0].VCenter)
	require.Equal(t, "dev", result.Items[1].VMFolder)
}

func TestGetVMByUUIDAcrossEndpoints(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	a := vsphere.NewFakeClient("dc-a")
	b := vsphere.NewFakeClient("dc-b")
	b.AllVMs = []vsphere.VirtualMachine{{Name: "db01", InstanceUUID: "u-db01"}}
	dialer.Clients["vc-a"] = a
	dialer.Clients["vc-b"] = b
	svc := newService(t, dialer, "vc-a", "vc-b")

	result, err := svc.GetVMByUUID(context.Background(), "", "u-db01")
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	require.Equal(t, "vc-b", result.Items[0].VCenter)

	missing, err := svc.GetVMByUUID(context.Background(), "", "u-nope")
	require.NoError(t, err, "a UUID nobody knows is an empty result, not an error")
	require.Empty(t, missing.Items)
}

func TestVMDiskSizeConversion(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	client := vsphere.NewFakeClient("dc-a")
	client.AllVMs = []vsphere.VirtualMachine{{
		Name:         "web01",
		InstanceUUID: "u-web01",
		DiskDevices: []vsphere.VMDisk{
			{Label: "Hard disk 1", Datastore: "ds1", CapacityKB: 41943040}, // 40 GB
		},
	}}
	dialer.Clients["vc-a"] = client
	svc := newService(t, dialer, "vc-a")

	result, err := svc.ListVMs(context.Background(), "", nil)
	require.NoError(t, err)

	require.Len(t, result.Items[0].DiskDevices, 1)
	require.Equal(t, 40, result.Items[0].DiskDevices[0].SizeGB)
}

func TestListVCenters(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	svc := newService(t, dialer, "vc-a", "vc-b")

	all := svc.ListVCenters("")
	require.Len(t, all, 2)
	require.Equal(t, "vc-a", all[0].Name)
	require.Equal(t, "vc-a.local", all[0].HostName)

	one := svc.ListVCenters("vc-b")
	require.Len(t, one, 1)

	none := svc.ListVCenters("vc-zz")
	require.Empty(t, none, "unknown name is an empty listing, not an error")
}
