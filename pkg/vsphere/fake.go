package vsphere

import (
	"context"
	"sync"
	"time"

	"vcbridge/pkg/config"
)

// FakeClient is a deterministic in-memory Client used by offline mode and by
// unit tests. All fields may be populated up front; Calls counts invocations
// per method so tests can assert that no remote call happened.
type FakeClient struct {
	mu    sync.Mutex
	Calls map[string]int

	DatacenterName string
	Now            time.Time
	ProbeErr       error

	VMsByFolder map[string][]VirtualMachine
	AllVMs      []VirtualMachine
	FolderList  []string

	HostList      []HostSystem
	ClusterList   []ComputeCluster
	DatastoreList []DatastoreSummary
	NetworkList   []Network

	SnapshotsByFolder map[string][]VMSnapshots
	AllSnapshots      []VMSnapshots

	AlarmList []TriggeredAlarm
	EventList []EventRecord

	Err    error // returned by every inventory call when set
	Closed bool
}

// NewFakeClient returns a fake with a fixed datacenter name and probe time.
func NewFakeClient(datacenter string) *FakeClient {
	return &FakeClient{
		DatacenterName: datacenter,
		Now:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *FakeClient) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Calls == nil {
		f.Calls = make(map[string]int)
	}
	f.Calls[method]++
}

// CallCount returns how many times the named method was invoked.
func (f *FakeClient) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *FakeClient) Datacenter() string {
	return f.DatacenterName
}

func (f *FakeClient) CurrentTime(_ context.Context) (time.Time, error) {
	f.record("CurrentTime")
	if f.ProbeErr != nil {
		return time.Time{}, f.ProbeErr
	}
	return f.Now, nil
}

func (f *FakeClient) VirtualMachines(_ context.Context, folder string) ([]VirtualMachine, error) {
	f.record("VirtualMachines")
	if f.Err != nil {
		return nil, f.Err
	}
	if folder == "" {
		return f.AllVMs, nil
	}
	return f.VMsByFolder[folder], nil
}

func (f *FakeClient) VirtualMachineByUUID(_ context.Context, instanceUUID string) (*VirtualMachine, error) {
	f.record("VirtualMachineByUUID")
	if f.Err != nil {
		return nil, f.Err
	}
	for i := range f.AllVMs {
		if f.AllVMs[i].InstanceUUID == instanceUUID {
			return &f.AllVMs[i], nil
		}
	}
	for _, vms := range f.VMsByFolder {
		for i := range vms {
			if vms[i].InstanceUUID == instanceUUID {
				return &vms[i], nil
			}
		}
	}
	return nil, ErrObjectNotFound
}

func (f *FakeClient) VMFolders(_ context.Context, names []string) ([]string, error) {
	f.record("VMFolders")
	if f.Err != nil {
		return nil, f.Err
	}
	if names == nil {
		return f.FolderList, nil
	}
	known := make(map[string]bool, len(f.FolderList))
	for _, name := range f.FolderList {
		known[name] = true
	}
	found := make([]string, 0, len(names))
	for _, name := range names {
		if known[name] {
			found = append(found, name)
		}
	}
	return found, nil
}

func (f *FakeClient) Hosts(_ context.Context) ([]HostSystem, error) {
	f.record("Hosts")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.HostList, nil
}

func (f *FakeClient) Clusters(_ context.Context) ([]ComputeCluster, error) {
	f.record("Clusters")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ClusterList, nil
}

func (f *FakeClient) Datastores(_ context.Context) ([]DatastoreSummary, error) {
	f.record("Datastores")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.DatastoreList, nil
}

func (f *FakeClient) Networks(_ context.Context) ([]Network, error) {
	f.record("Networks")
	if f.Err != nil {
		return nil, f.Err
	}
	return f.NetworkList, nil
}

func (f *FakeClient) SnapshotTrees(_ context.Context, folder string) ([]VMSnapshots, error) {
	f.record("SnapshotTrees")
	if f.Err != nil {
		return nil, f.Err
	}
	if folder == "" {
		return f.AllSnapshots, nil
	}
	return f.SnapshotsByFolder[folder], nil
}

func (f *FakeClient) SnapshotTreesByUUID(_ context.Context, instanceUUID string) (*VMSnapshots, error) {
	f.record("SnapshotTreesByUUID")
	if f.Err != nil {
		return nil, f.Err
	}
	for i := range f.AllSnapshots {
		if f.AllSnapshots[i].VMInstanceUUID == instanceUUID {
			return &f.AllSnapshots[i], nil
		}
	}
	for _, trees := range f.SnapshotsByFolder {
		for i := range trees {
			if trees[i].VMInstanceUUID == instanceUUID {
				return &trees[i], nil
			}
		}
	}
	return nil, ErrObjectNotFound
}

func (f *FakeClient) Alarms(_ context.Context, begin, end time.Time) ([]TriggeredAlarm, error) {
	f.record("Alarms")
	if f.Err != nil {
		return nil, f.Err
	}
	var out []TriggeredAlarm
	for _, a := range f.AlarmList {
		if a.Time.Before(begin) || a.Time.After(end) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *FakeClient) Events(_ context.Context, begin, end time.Time) ([]EventRecord, error) {
	f.record("Events")
	if f.Err != nil {
		return nil, f.Err
	}
	var out []EventRecord
	for _, e := range f.EventList {
		if e.CreatedTime.Before(begin) || e.CreatedTime.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *FakeClient) Close(_ context.Context) error {
	f.record("Close")
	f.Closed = true
	return nil
}

// FakeTagClient is a deterministic TagClient double.
type FakeTagClient struct {
	CategoryList   []TagCategory
	TagList        []Tag
	ObjectList     map[ObjectType][]TaggedObject
	AttachmentList map[ObjectType][]Attachment
	Err            error
	Closed         bool
}

func (f *FakeTagClient) Categories(_ context.Context) ([]TagCategory, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.CategoryList, nil
}

func (f *FakeTagClient) Tags(_ context.Context) ([]Tag, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.TagList, nil
}

func (f *FakeTagClient) Objects(_ context.Context, objType ObjectType) ([]TaggedObject, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ObjectList[objType], nil
}

func (f *FakeTagClient) Attachments(_ context.Context, objType ObjectType, objectIDs []string) ([]Attachment, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	want := make(map[string]bool, len(objectIDs))
	for _, id := range objectIDs {
		want[id] = true
	}
	var out []Attachment
	for _, a := range f.AttachmentList[objType] {
		if want[a.ObjectID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *FakeTagClient) Close(_ context.Context) error {
	f.Closed = true
	return nil
}

// FakeDialer hands out pre-registered fakes per endpoint name. DialErr and
// TagErr inject per-endpoint connection failures.
type FakeDialer struct {
	mu         sync.Mutex
	Clients    map[string]*FakeClient
	TagClients map[string]*FakeTagClient
	DialErr    map[string]error
	TagErr     map[string]error
	DialCalls  map[string]int
}

// NewFakeDialer returns an empty fake dialer; endpoints dialed without a
// registered client get a fresh blank FakeClient, which keeps offline mode
// fully functional with no backend at all.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		Clients:    make(map[string]*FakeClient),
		TagClients: make(map[string]*FakeTagClient),
		DialErr:    make(map[string]error),
		TagErr:     make(map[string]error),
		DialCalls:  make(map[string]int),
	}
}

func (d *FakeDialer) Dial(_ context.Context, ep config.Endpoint) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.DialCalls[ep.Name]++
	if err := d.DialErr[ep.Name]; err != nil {
		return nil, err
	}
	c, ok := d.Clients[ep.Name]
	if !ok {
		c = NewFakeClient("dc-" + ep.Name)
		d.Clients[ep.Name] = c
	}
	return c, nil
}

func (d *FakeDialer) DialTags(_ context.Context, ep config.Endpoint) (TagClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.TagErr[ep.Name]; err != nil {
		return nil, err
	}
	tc, ok := d.TagClients[ep.Name]
	if !ok {
		tc = &FakeTagClient{}
		d.TagClients[ep.Name] = tc
	}
	return tc, nil
}
