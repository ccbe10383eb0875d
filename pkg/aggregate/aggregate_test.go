package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcbridge/pkg/config"
	"vcbridge/pkg/connector"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/vsphere"
)

func newFanout(t *testing.T, dialer *vsphere.FakeDialer, names ...string) *Fanout {
	t.Helper()

	mr := miniredis.RunT(t)
	store := liveness.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	eps := make([]config.Endpoint, 0, len(names))
	for _, name := range names {
		eps = append(eps, config.Endpoint{
			Name: name, Hostname: name + ".local", Port: 443, Username: "ro", Password: "x",
		})
	}
	endpoints, err := config.NewEndpoints(eps...)
	require.NoError(t, err)

	settings := config.DefaultSettings()
	settings.RetryInterval = time.Millisecond
	settings.MaxRetries = 1

	return New(connector.New(endpoints, dialer, store, settings), settings)
}

func fakeWithVMs(datacenter string, names ...string) *vsphere.FakeClient {
	c := vsphere.NewFakeClient(datacenter)
	for _, name := range names {
		c.AllVMs = append(c.AllVMs, vsphere.VirtualMachine{Name: name, InstanceUUID: name + "-uuid"})
	}
	return c
}

func fetchVMs(ctx context.Context, _ string, client vsphere.Client) ([]vsphere.VirtualMachine, error) {
	return client.VirtualMachines(ctx, "")
}

func TestCollectMergesInEndpointOrder(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	dialer.Clients["vc-a"] = fakeWithVMs("dc-a", "a1", "a2", "a3")
	dialer.Clients["vc-b"] = fakeWithVMs("dc-b", "b1", "b2")
	fanout := newFanout(t, dialer, "vc-a", "vc-b")

	result, err := Collect(context.Background(), fanout, "", fetchVMs)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.Sessions)

	got := make([]string, 0, len(result.Items))
	for _, vm := range result.Items {
		got = append(got, vm.Name)
	}
	assert.Equal(t, []string{"a1", "a2", "a3", "b1", "b2"}, got,
		"partials merge in configuration order, not completion order")
}

func TestCollectToleratesEndpointFailure(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	dialer.Clients["vc-a"] = fakeWithVMs("dc-a", "a1")
	broken := fakeWithVMs("dc-b", "b1")
	broken.Err = errors.New("backend exploded mid-query")
	dialer.Clients["vc-b"] = broken
	fanout := newFanout(t, dialer, "vc-a", "vc-b")

	result, err := Collect(context.Background(), fanout, "", fetchVMs)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total, "failed endpoint contributes nothing")
	assert.Equal(t, "a1", result.Items[0].Name)
}

func TestCollectSelectedEndpoint(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	dialer.Clients["vc-a"] = fakeWithVMs("dc-a", "a1")
	dialer.Clients["vc-b"] = fakeWithVMs("dc-b", "b1")
	fanout := newFanout(t, dialer, "vc-a", "vc-b")

	result, err := Collect(context.Background(), fanout, "vc-b", fetchVMs)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "b1", result.Items[0].Name)
	assert.Zero(t, dialer.Clients["vc-a"].CallCount("VirtualMachines"))
}

func TestCollectSelectedEndpointFailurePropagates(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	broken := fakeWithVMs("dc-a", "a1")
	broken.Err = errors.New("backend exploded mid-query")
	dialer.Clients["vc-a"] = broken
	fanout := newFanout(t, dialer, "vc-a")

	_, err := Collect(context.Background(), fanout, "vc-a", fetchVMs)
	assert.Error(t, err)
}

func TestCollectUnknownEndpoint(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	dialer.Clients["vc-a"] = fakeWithVMs("dc-a", "a1")
	fanout := newFanout(t, dialer, "vc-a")

	_, err := Collect(context.Background(), fanout, "vc-zz", fetchVMs)
	assert.ErrorIs(t, err, ErrEndpointNotFound)
}

func TestCollectPerEndpointCap(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	dialer.Clients["vc-a"] = fakeWithVMs("dc-a", "a1", "a2", "a3", "a4")
	fanout := newFanout(t, dialer, "vc-a")
	fanout.capacity = 2

	result, err := Collect(context.Background(), fanout, "", fetchVMs)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "a2", result.Items[1].Name, "cap keeps the head of each partial")
}

func TestPageWindows(t *testing.T) {
	items := []string{"a1", "a2", "a3", "b1", "b2"}

	window, page := Page(items, 0, 2)
	assert.Equal(t, []string{"a1", "a2"}, window)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrevious)

	window, page = Page(items, 4, 2)
	assert.Equal(t, []string{"b2"}, window)
	assert.False(t, page.HasNext, "short window means no next page")
	assert.True(t, page.HasPrevious)
}

func TestPageOffsetPastEnd(t *testing.T) {
	items := []string{"a1", "a2"}

	window, page := Page(items, 10, 5)
	assert.Empty(t, window)
	assert.Equal(t, 2, page.Total, "total reflects the merged count even past the end")
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
}

func TestPageFullWindowOverreportsNext(t *testing.T) {
	items := []string{"a1", "a2"}

	window, page := Page(items, 0, 2)
	assert.Len(t, window, 2)
	assert.True(t, page.HasNext, "exact multiple of the limit still claims a next page")
}
