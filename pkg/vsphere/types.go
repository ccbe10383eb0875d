// Package vsphere is the boundary to the vCenter object-query and tag
// services. The rest of the service consumes the Client/TagClient/Dialer
// interfaces only; the govmomi-backed implementation lives in govmomi.go and
// a deterministic in-memory double in fake.go.
package vsphere

import (
	"context"
	"time"

	"vcbridge/pkg/config"
)

// ObjectType selects the inventory object kind for tag-association queries.
type ObjectType string

const (
	ObjectTypeVirtualMachine ObjectType = "VirtualMachine"
	ObjectTypeDatastore      ObjectType = "Datastore"
	ObjectTypeNetwork        ObjectType = "Network"
)

// VirtualMachine is the raw VM object as retrieved from one endpoint.
type VirtualMachine struct {
	Name           string
	UUID           string
	InstanceUUID   string
	Cluster        string
	ESXiHostname   string
	Hostname       string
	IPAddress      string
	PowerState     string
	NumCPU         int32
	MemorySizeMB   int32
	Template       bool
	VMPathName     string
	GuestFullName  string
	HWVersion      string
	DiskDevices    []VMDisk
	NetworkDevices []VMNic
}

// VMDisk is one virtual disk of a VM.
type VMDisk struct {
	Label      string
	Datastore  string
	CapacityKB int64
}

// VMNic is one virtual NIC of a VM.
type VMNic struct {
	Label          string
	MacAddress     string
	Portgroup      string
	Connected      bool
	StartConnected bool
}

// HostSystem is the raw ESXi host object.
type HostSystem struct {
	Name string
	MoID string
	Tags []string
}

// ComputeCluster is the raw cluster object.
type ComputeCluster struct {
	Name   string
	Status string
	Hosts  []string
}

// DatastoreSummary is the raw datastore object.
type DatastoreSummary struct {
	Name          string
	Type          string
	CapacityBytes int64
	FreeBytes     int64
	Hosts         []string
}

// Network is the raw network/portgroup object.
type Network struct {
	Name  string
	Hosts []string
}

// SnapshotNode is one node of a VM's snapshot tree, children nested.
type SnapshotNode struct {
	ID          int32
	Name        string
	Description string
	CreateTime  time.Time
	Children    []SnapshotNode
}

// VMSnapshots carries the snapshot tree of one VM.
type VMSnapshots struct {
	VMName         string
	VMInstanceUUID string
	Roots          []SnapshotNode
}

// TriggeredAlarm is one raw triggered-alarm state.
type TriggeredAlarm struct {
	Name             string
	Description      string
	Status           string
	Time             time.Time
	Acknowledged     bool
	AcknowledgedTime *time.Time
	Source           string
}

// EventRecord is one raw vCenter event.
type EventRecord struct {
	Type        string
	Message     string
	CreatedTime time.Time
	Source      string
	IPAddress   string
	UserName    string
}

// TagCategory is one tag category of the tag service.
type TagCategory struct {
	ID   string
	Name string
}

// Tag is one tag definition of the tag service.
type Tag struct {
	ID         string
	Name       string
	CategoryID string
}

// TaggedObject is one inventory object as listed by the tag service.
type TaggedObject struct {
	ID   string
	Name string
}

// Attachment maps one object id to the tag ids attached to it.
type Attachment struct {
	ObjectID string
	TagIDs   []string
}

// Client is one authenticated session to an endpoint's object-query API.
// Sessions are owned by the connector pool; callers borrow them for a single
// call and must not retain them.
type Client interface {
	// CurrentTime is the liveness probe: a cheap round trip that fails
	// when the session has expired or the endpoint is unreachable.
	CurrentTime(ctx context.Context) (time.Time, error)

	// Datacenter returns the name of the endpoint's datacenter, resolved
	// once at connect time.
	Datacenter() string

	// VirtualMachines lists the VMs below the given folder path, relative
	// to the endpoint's base VM folder. An empty folder lists everything.
	VirtualMachines(ctx context.Context, folder string) ([]VirtualMachine, error)

	// VirtualMachineByUUID looks a VM up by instance UUID. Returns
	// ErrObjectNotFound when no VM matches.
	VirtualMachineByUUID(ctx context.Context, instanceUUID string) (*VirtualMachine, error)

	// VMFolders lists folder names below the endpoint's base VM folder.
	// With a nil names slice it returns the immediate child folders; with
	// names it returns the subset that resolves to an existing folder, in
	// request order.
	VMFolders(ctx context.Context, names []string) ([]string, error)

	Hosts(ctx context.Context) ([]HostSystem, error)
	Clusters(ctx context.Context) ([]ComputeCluster, error)
	Datastores(ctx context.Context) ([]DatastoreSummary, error)
	Networks(ctx context.Context) ([]Network, error)

	// SnapshotTrees returns the snapshot trees of all VMs below the given
	// folder path that have at least one snapshot.
	SnapshotTrees(ctx context.Context, folder string) ([]VMSnapshots, error)

	// SnapshotTreesByUUID returns the snapshot tree of the VM with the
	// given instance UUID, or ErrObjectNotFound.
	SnapshotTreesByUUID(ctx context.Context, instanceUUID string) (*VMSnapshots, error)

	// Alarms lists triggered alarms within [begin, end].
	Alarms(ctx context.Context, begin, end time.Time) ([]TriggeredAlarm, error)

	// Events lists events within [begin, end].
	Events(ctx context.Context, begin, end time.Time) ([]EventRecord, error)

	Close(ctx context.Context) error
}

// TagClient is one authenticated session to an endpoint's tag-association
// service.
type TagClient interface {
	Categories(ctx context.Context) ([]TagCategory, error)
	Tags(ctx context.Context) ([]Tag, error)
	Objects(ctx context.Context, objType ObjectType) ([]TaggedObject, error)
	Attachments(ctx context.Context, objType ObjectType, objectIDs []string) ([]Attachment, error)
	Close(ctx context.Context) error
}

// Dialer opens authenticated sessions to one endpoint. The production
// implementation speaks the vSphere SOAP and REST APIs; tests and offline
// mode substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, ep config.Endpoint) (Client, error)
	DialTags(ctx context.Context, ep config.Endpoint) (TagClient, error)
}
