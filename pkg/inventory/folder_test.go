package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"vcbridge/pkg/vsphere"
)

func TestListVMFolders(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	a := vsphere.NewFakeClient("dc-a")
	a.FolderList = []string{"prod", "dev"}
	b := vsphere.NewFakeClient("dc-b")
	b.FolderList = []string{"prod"}
	dialer.Clients["vc-a"] = a
	dialer.Clients["vc-b"] = b
	svc := newService(t, dialer, "vc-a", "vc-b")

	result, err := svc.ListVMFolders(context.Background(), "", nil)
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	require.Equal(t, "prod", result.Items[0].Name)
	require.Equal(t, "vc-a", result.Items[0].VCenter)
	require.Equal(t, "dev", result.Items[1].Name)
	require.Equal(t, "vc-b", result.Items[2].VCenter)
}

func TestListVMFoldersByName(t *testing.T) {
	dialer := vsphere.NewFakeDialer()
	a := vsphere.NewFakeClient("dc-a")
	a.FolderList = []string{"prod", "dev"}
	b := vsphere.NewFakeClient("dc-b")
	b.FolderList = []string{"prod"}
	dialer.Clients["vc-a"] = a
	dialer.Clients["vc-b"] = b
	svc := newService(t, dialer, "vc-a", "vc-b")

	result, err := svc.ListVMFolders(context.Background(), "", []string{"dev", "staging"})
	require.NoError(t, err)

	// Only folders that actually exist on an endpoint are reported.
	require.Len(t, result.Items, 1)
	require.Equal(t, "dev", result.Items[0].Name)
	require.Equal(t, "vc-a", result.Items[0].VCenter)
}
