package vsphere

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/vmware/govmomi"
	vimevent "github.com/vmware/govmomi/event"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vapi/rest"
	"github.com/vmware/govmomi/vapi/tags"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/methods"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/soap"
	"github.com/vmware/govmomi/vim25/types"
	"github.com/vmware/govmomi/view"

	"vcbridge/pkg/config"
)

// govmomiDialer opens real sessions against the vSphere SOAP API and the
// vAPI tag service.
type govmomiDialer struct {
	connectTimeout time.Duration
	idleTimeout    time.Duration
}

// NewDialer returns the production dialer.
func NewDialer(settings config.Settings) Dialer {
	return &govmomiDialer{
		connectTimeout: settings.ConnectTimeout,
		idleTimeout:    settings.PoolTimeout,
	}
}

func endpointURL(ep config.Endpoint) (*url.URL, error) {
	u, err := soap.ParseURL(fmt.Sprintf("%s:%d", ep.Hostname, ep.Port))
	if err != nil {
		return nil, err
	}
	u.User = url.UserPassword(ep.Username, ep.Password)
	return u, nil
}

func (d *govmomiDialer) soapClient(ep config.Endpoint, u *url.URL) *soap.Client {
	sc := soap.NewClient(u, ep.IgnoreSSLCertVerify)
	sc.Timeout = d.connectTimeout
	sc.DefaultTransport().IdleConnTimeout = d.idleTimeout
	if ep.ProxyHost != "" {
		proxy := &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", ep.ProxyHost, ep.ProxyPort)}
		sc.DefaultTransport().Proxy = http.ProxyURL(proxy)
	}
	return sc
}

func (d *govmomiDialer) login(ctx context.Context, ep config.Endpoint) (*govmomi.Client, *url.URL, error) {
	u, err := endpointURL(ep)
	if err != nil {
		return nil, nil, Classify(err)
	}

	vc, err := vim25.NewClient(ctx, d.soapClient(ep, u))
	if err != nil {
		return nil, nil, Classify(err)
	}

	c := &govmomi.Client{Client: vc, SessionManager: session.NewManager(vc)}
	if err := c.Login(ctx, u.User); err != nil {
		if isInvalidLogin(err) {
			return nil, nil, AuthFault(err)
		}
		return nil, nil, Classify(err)
	}
	return c, u, nil
}

// Dial opens an authenticated SOAP session and resolves the endpoint's
// datacenter name.
func (d *govmomiDialer) Dial(ctx context.Context, ep config.Endpoint) (Client, error) {
	ctx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	defer cancel()

	c, _, err := d.login(ctx, ep)
	if err != nil {
		return nil, err
	}

	dcName, err := firstDatacenterName(ctx, c.Client)
	if err != nil {
		_ = c.Logout(ctx)
		return nil, Classify(err)
	}

	return &govmomiClient{
		gc:         c,
		vc:         c.Client,
		dcName:     dcName,
		baseFolder: ep.BaseVMFolder,
	}, nil
}

// DialTags opens a session to the endpoint's vAPI tag service.
func (d *govmomiDialer) DialTags(ctx context.Context, ep config.Endpoint) (TagClient, error) {
	ctx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	defer cancel()

	c, u, err := d.login(ctx, ep)
	if err != nil {
		return nil, err
	}

	rc := rest.NewClient(c.Client)
	if err := rc.Login(ctx, u.User); err != nil {
		_ = c.Logout(ctx)
		return nil, Classify(err)
	}

	return &govmomiTagClient{gc: c, rc: rc, mgr: tags.NewManager(rc)}, nil
}

func isInvalidLogin(err error) bool {
	if !soap.IsSoapFault(err) {
		return false
	}
	_, ok := soap.ToSoapFault(err).VimFault().(types.InvalidLogin)
	return ok
}

func firstDatacenterName(ctx context.Context, vc *vim25.Client) (string, error) {
	finder := find.NewFinder(vc)
	dcs, err := finder.DatacenterList(ctx, "*")
	if err != nil {
		return "", err
	}
	if len(dcs) == 0 {
		return "", fmt.Errorf("no datacenter found")
	}
	return dcs[0].Name(), nil
}

type govmomiClient struct {
	gc         *govmomi.Client
	vc         *vim25.Client
	dcName     string
	baseFolder string
}

func (c *govmomiClient) Datacenter() string {
	return c.dcName
}

func (c *govmomiClient) CurrentTime(ctx context.Context) (time.Time, error) {
	t, err := methods.GetCurrentTime(ctx, c.vc)
	if err != nil {
		return time.Time{}, Classify(err)
	}
	return *t, nil
}

func (c *govmomiClient) Close(ctx context.Context) error {
	return c.gc.Logout(ctx)
}

// folderRef resolves a folder path below the base VM folder to a container
// reference. Returns nil when the folder does not exist.
func (c *govmomiClient) folderRef(ctx context.Context, folder string) (*types.ManagedObjectReference, error) {
	if folder == "" && c.baseFolder == "" {
		root := c.vc.ServiceContent.RootFolder
		return &root, nil
	}

	parts := []string{"", c.dcName, "vm"}
	if c.baseFolder != "" {
		parts = append(parts, c.baseFolder)
	}
	if folder != "" {
		parts = append(parts, folder)
	}

	si := object.NewSearchIndex(c.vc)
	ref, err := si.FindByInventoryPath(ctx, strings.Join(parts, "/"))
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}
	moref := ref.Reference()
	return &moref, nil
}

// retrieveView collects managed objects of one kind below a container.
func (c *govmomiClient) retrieveView(ctx context.Context, container types.ManagedObjectReference, kind string, props []string, dst interface{}) error {
	m := view.NewManager(c.vc)
	v, err := m.CreateContainerView(ctx, container, []string{kind}, true)
	if err != nil {
		return err
	}
	defer func() { _ = v.Destroy(ctx) }()

	return v.Retrieve(ctx, []string{kind}, props, dst)
}

// hostIndex maps host MoRef values to host name and owning cluster name.
type hostEntry struct {
	name    string
	cluster string
}

func (c *govmomiClient) hostIndex(ctx context.Context) (map[string]hostEntry, error) {
	var hosts []mo.HostSystem
	root := c.vc.ServiceContent.RootFolder
	if err := c.retrieveView(ctx, root, "HostSystem", []string{"name", "parent"}, &hosts); err != nil {
		return nil, err
	}

	var clusters []mo.ClusterComputeResource
	if err := c.retrieveView(ctx, root, "ClusterComputeResource", []string{"name"}, &clusters); err != nil {
		return nil, err
	}
	clusterNames := make(map[string]string, len(clusters))
	for _, cl := range clusters {
		clusterNames[cl.Self.Value] = cl.Name
	}

	index := make(map[string]hostEntry, len(hosts))
	for _, h := range hosts {
		entry := hostEntry{name: h.Name}
		if h.Parent != nil {
			entry.cluster = clusterNames[h.Parent.Value]
		}
		index[h.Self.Value] = entry
	}
	return index, nil
}

var vmProps = []string{"summary", "guest", "config"}

func (c *govmomiClient) VirtualMachines(ctx context.Context, folder string) ([]VirtualMachine, error) {
	container, err := c.folderRef(ctx, folder)
	if err != nil {
		return nil, err
	}
	if container == nil {
		// Unknown folder contributes nothing, matching the lookup-by-path
		// semantics of the inventory service.
		return nil, nil
	}

	var raw []mo.VirtualMachine
	if err := c.retrieveView(ctx, *container, "VirtualMachine", vmProps, &raw); err != nil {
		return nil, err
	}

	hosts, err := c.hostIndex(ctx)
	if err != nil {
		return nil, err
	}

	vms := make([]VirtualMachine, 0, len(raw))
	for i := range raw {
		vms = append(vms, c.mapVM(&raw[i], hosts))
	}
	return vms, nil
}

func (c *govmomiClient) VirtualMachineByUUID(ctx context.Context, instanceUUID string) (*VirtualMachine, error) {
	si := object.NewSearchIndex(c.vc)
	ref, err := si.FindByUuid(ctx, nil, instanceUUID, true, types.NewBool(true))
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrObjectNotFound
	}

	var raw mo.VirtualMachine
	pc := property.DefaultCollector(c.vc)
	if err := pc.RetrieveOne(ctx, ref.Reference(), vmProps, &raw); err != nil {
		return nil, err
	}

	hosts, err := c.hostIndex(ctx)
	if err != nil {
		return nil, err
	}
	vm := c.mapVM(&raw, hosts)
	return &vm, nil
}

func (c *govmomiClient) mapVM(raw *mo.VirtualMachine, hosts map[string]hostEntry) VirtualMachine {
	vm := VirtualMachine{
		Name:          raw.Summary.Config.Name,
		UUID:          raw.Summary.Config.Uuid,
		InstanceUUID:  raw.Summary.Config.InstanceUuid,
		PowerState:    string(raw.Summary.Runtime.PowerState),
		NumCPU:        raw.Summary.Config.NumCpu,
		MemorySizeMB:  raw.Summary.Config.MemorySizeMB,
		Template:      raw.Summary.Config.Template,
		VMPathName:    raw.Summary.Config.VmPathName,
		GuestFullName: raw.Summary.Config.GuestFullName,
		HWVersion:     raw.Summary.Config.HwVersion,
	}
	if raw.Summary.Runtime.Host != nil {
		entry := hosts[raw.Summary.Runtime.Host.Value]
		vm.ESXiHostname = entry.name
		vm.Cluster = entry.cluster
	}
	if raw.Guest != nil {
		vm.Hostname = raw.Guest.HostName
		vm.IPAddress = raw.Guest.IpAddress
	}
	if raw.Config != nil {
		for _, dev := range raw.Config.Hardware.Device {
			switch d := dev.(type) {
			case *types.VirtualDisk:
				disk := VMDisk{CapacityKB: d.CapacityInKB}
				if d.DeviceInfo != nil {
					disk.Label = d.DeviceInfo.GetDescription().Label
				}
				if b, ok := d.Backing.(*types.VirtualDiskFlatVer2BackingInfo); ok {
					disk.Datastore = datastoreFromPath(b.FileName)
				}
				vm.DiskDevices = append(vm.DiskDevices, disk)
			case *types.VirtualVmxnet3:
				nic := VMNic{MacAddress: d.MacAddress}
				if d.DeviceInfo != nil {
					nic.Label = d.DeviceInfo.GetDescription().Label
				}
				if b, ok := d.Backing.(*types.VirtualEthernetCardNetworkBackingInfo); ok {
					nic.Portgroup = b.DeviceName
				}
				if d.Connectable != nil {
					nic.Connected = d.Connectable.Connected
					nic.StartConnected = d.Connectable.StartConnected
				}
				vm.NetworkDevices = append(vm.NetworkDevices, nic)
			}
		}
	}
	return vm
}

// datastoreFromPath extracts the datastore name out of a "[ds] dir/file"
// backing file path.
func datastoreFromPath(p string) string {
	if i := strings.Index(p, "["); i >= 0 {
		if j := strings.Index(p[i:], "]"); j > 0 {
			return p[i+1 : i+j]
		}
	}
	return ""
}

func (c *govmomiClient) VMFolders(ctx context.Context, names []string) ([]string, error) {
	if names != nil {
		found := make([]string, 0, len(names))
		for _, name := range names {
			ref, err := c.folderRef(ctx, name)
			if err != nil {
				return nil, err
			}
			if ref == nil || ref.Type != "Folder" {
				continue
			}
			found = append(found, name)
		}
		return found, nil
	}

	base, err := c.folderRef(ctx, "")
	if err != nil || base == nil {
		return nil, err
	}

	pc := property.DefaultCollector(c.vc)
	var folder mo.Folder
	if err := pc.RetrieveOne(ctx, *base, []string{"childEntity"}, &folder); err != nil {
		return nil, err
	}

	var children []types.ManagedObjectReference
	for _, child := range folder.ChildEntity {
		if child.Type == "Folder" {
			children = append(children, child)
		}
	}
	if len(children) == 0 {
		return nil, nil
	}

	var subs []mo.Folder
	if err := pc.Retrieve(ctx, children, []string{"name"}, &subs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(subs))
	for _, f := range subs {
		out = append(out, f.Name)
	}
	return out, nil
}

func (c *govmomiClient) Hosts(ctx context.Context) ([]HostSystem, error) {
	var raw []mo.HostSystem
	root := c.vc.ServiceContent.RootFolder
	if err := c.retrieveView(ctx, root, "HostSystem", []string{"name", "tag"}, &raw); err != nil {
		return nil, err
	}

	hosts := make([]HostSystem, 0, len(raw))
	for _, h := range raw {
		hs := HostSystem{Name: h.Name, MoID: h.Self.Value}
		for _, t := range h.Tag {
			hs.Tags = append(hs.Tags, t.Key)
		}
		hosts = append(hosts, hs)
	}
	return hosts, nil
}

func (c *govmomiClient) Clusters(ctx context.Context) ([]ComputeCluster, error) {
	var raw []mo.ClusterComputeResource
	root := c.vc.ServiceContent.RootFolder
	if err := c.retrieveView(ctx, root, "ClusterComputeResource", []string{"name", "overallStatus", "host"}, &raw); err != nil {
		return nil, err
	}

	hosts, err := c.hostIndex(ctx)
	if err != nil {
		return nil, err
	}

	clusters := make([]ComputeCluster, 0, len(raw))
	for _, cl := range raw {
		cc := ComputeCluster{Name: cl.Name, Status: string(cl.OverallStatus)}
		for _, ref := range cl.Host {
			cc.Hosts = append(cc.Hosts, hosts[ref.Value].name)
		}
		clusters = append(clusters, cc)
	}
	return clusters, nil
}

func (c *govmomiClient) Datastores(ctx context.Context) ([]DatastoreSummary, error) {
	var raw []mo.Datastore
	root := c.vc.ServiceContent.RootFolder
	if err := c.retrieveView(ctx, root, "Datastore", []string{"summary", "host"}, &raw); err != nil {
		return nil, err
	}

	hosts, err := c.hostIndex(ctx)
	if err != nil {
		return nil, err
	}

	stores := make([]DatastoreSummary, 0, len(raw))
	for _, d := range raw {
		ds := DatastoreSummary{
			Name:          d.Summary.Name,
			Type:          d.Summary.Type,
			CapacityBytes: d.Summary.Capacity,
			FreeBytes:     d.Summary.FreeSpace,
		}
		for _, mount := range d.Host {
			ds.Hosts = append(ds.Hosts, hosts[mount.Key.Value].name)
		}
		stores = append(stores, ds)
	}
	return stores, nil
}

func (c *govmomiClient) Networks(ctx context.Context) ([]Network, error) {
	var raw []mo.Network
	root := c.vc.ServiceContent.RootFolder
	if err := c.retrieveView(ctx, root, "Network", []string{"name", "host"}, &raw); err != nil {
		return nil, err
	}

	hosts, err := c.hostIndex(ctx)
	if err != nil {
		return nil, err
	}

	networks := make([]Network, 0, len(raw))
	for _, n := range raw {
		pg := Network{Name: n.Name}
		for _, ref := range n.Host {
			pg.Hosts = append(pg.Hosts, hosts[ref.Value].name)
		}
		networks = append(networks, pg)
	}
	return networks, nil
}

var snapshotProps = []string{"snapshot", "summary.config"}

func (c *govmomiClient) SnapshotTrees(ctx context.Context, folder string) ([]VMSnapshots, error) {
	container, err := c.folderRef(ctx, folder)
	if err != nil {
		return nil, err
	}
	if container == nil {
		return nil, nil
	}

	var raw []mo.VirtualMachine
	if err := c.retrieveView(ctx, *container, "VirtualMachine", snapshotProps, &raw); err != nil {
		return nil, err
	}

	trees := make([]VMSnapshots, 0, len(raw))
	for i := range raw {
		if t := mapSnapshots(&raw[i]); t != nil {
			trees = append(trees, *t)
		}
	}
	return trees, nil
}

func (c *govmomiClient) SnapshotTreesByUUID(ctx context.Context, instanceUUID string) (*VMSnapshots, error) {
	si := object.NewSearchIndex(c.vc)
	ref, err := si.FindByUuid(ctx, nil, instanceUUID, true, types.NewBool(true))
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, ErrObjectNotFound
	}

	var raw mo.VirtualMachine
	pc := property.DefaultCollector(c.vc)
	if err := pc.RetrieveOne(ctx, ref.Reference(), snapshotProps, &raw); err != nil {
		return nil, err
	}

	t := mapSnapshots(&raw)
	if t == nil {
		t = &VMSnapshots{
			VMName:         raw.Summary.Config.Name,
			VMInstanceUUID: raw.Summary.Config.InstanceUuid,
		}
	}
	return t, nil
}

func mapSnapshots(raw *mo.VirtualMachine) *VMSnapshots {
	if raw.Snapshot == nil || len(raw.Snapshot.RootSnapshotList) == 0 {
		return nil
	}
	return &VMSnapshots{
		VMName:         raw.Summary.Config.Name,
		VMInstanceUUID: raw.Summary.Config.InstanceUuid,
		Roots:          mapSnapshotNodes(raw.Snapshot.RootSnapshotList),
	}
}

func mapSnapshotNodes(trees []types.VirtualMachineSnapshotTree) []SnapshotNode {
	nodes := make([]SnapshotNode, 0, len(trees))
	for _, t := range trees {
		nodes = append(nodes, SnapshotNode{
			ID:          t.Id,
			Name:        t.Name,
			Description: t.Description,
			CreateTime:  t.CreateTime,
			Children:    mapSnapshotNodes(t.ChildSnapshotList),
		})
	}
	return nodes
}

func (c *govmomiClient) Alarms(ctx context.Context, begin, end time.Time) ([]TriggeredAlarm, error) {
	var root mo.Folder
	pc := property.DefaultCollector(c.vc)
	if err := pc.RetrieveOne(ctx, c.vc.ServiceContent.RootFolder, []string{"triggeredAlarmState"}, &root); err != nil {
		return nil, err
	}

	alarms := make([]TriggeredAlarm, 0, len(root.TriggeredAlarmState))
	for _, state := range root.TriggeredAlarmState {
		if state.Time.Before(begin) || state.Time.After(end) {
			continue
		}

		ta := TriggeredAlarm{
			Status:           string(state.OverallStatus),
			Time:             state.Time,
			AcknowledgedTime: state.AcknowledgedTime,
			Source:           state.Entity.Value,
		}
		if state.Acknowledged != nil {
			ta.Acknowledged = *state.Acknowledged
		}

		var info mo.Alarm
		if err := pc.RetrieveOne(ctx, state.Alarm, []string{"info"}, &info); err == nil {
			ta.Name = info.Info.Name
			ta.Description = info.Info.Description
		}
		var entity mo.ManagedEntity
		if err := pc.RetrieveOne(ctx, state.Entity, []string{"name"}, &entity); err == nil {
			ta.Source = entity.Name
		}

		alarms = append(alarms, ta)
	}
	return alarms, nil
}

func (c *govmomiClient) Events(ctx context.Context, begin, end time.Time) ([]EventRecord, error) {
	em := vimevent.NewManager(c.vc)
	filter := types.EventFilterSpec{
		Time: &types.EventFilterSpecByTime{BeginTime: &begin, EndTime: &end},
	}

	raw, err := em.QueryEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	events := make([]EventRecord, 0, len(raw))
	for _, be := range raw {
		e := be.GetEvent()
		rec := EventRecord{
			Type:        reflect.TypeOf(be).Elem().Name(),
			Message:     e.FullFormattedMessage,
			CreatedTime: e.CreatedTime,
			UserName:    e.UserName,
			IPAddress:   eventIPAddress(be),
		}
		switch {
		case e.Host != nil:
			rec.Source = e.Host.Name
		case e.Vm != nil:
			rec.Source = e.Vm.Name
		case e.Datacenter != nil:
			rec.Source = e.Datacenter.Name
		}
		events = append(events, rec)
	}
	return events, nil
}

// eventIPAddress pulls the address off event types that carry one, e.g.
// UserLoginSessionEvent. Most event types have no such field.
func eventIPAddress(be types.BaseEvent) string {
	f := reflect.ValueOf(be).Elem().FieldByName("IpAddress")
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return ""
}

type govmomiTagClient struct {
	gc  *govmomi.Client
	rc  *rest.Client
	mgr *tags.Manager
}

func (t *govmomiTagClient) Categories(ctx context.Context) ([]TagCategory, error) {
	raw, err := t.mgr.GetCategories(ctx)
	if err != nil {
		return nil, err
	}
	cats := make([]TagCategory, 0, len(raw))
	for _, c := range raw {
		cats = append(cats, TagCategory{ID: c.ID, Name: c.Name})
	}
	return cats, nil
}

func (t *govmomiTagClient) Tags(ctx context.Context) ([]Tag, error) {
	raw, err := t.mgr.GetTags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Tag, 0, len(raw))
	for _, tg := range raw {
		out = append(out, Tag{ID: tg.ID, Name: tg.Name, CategoryID: tg.CategoryID})
	}
	return out, nil
}

var objectKinds = map[ObjectType]string{
	ObjectTypeVirtualMachine: "VirtualMachine",
	ObjectTypeDatastore:      "Datastore",
	ObjectTypeNetwork:        "Network",
}

func (t *govmomiTagClient) Objects(ctx context.Context, objType ObjectType) ([]TaggedObject, error) {
	kind, ok := objectKinds[objType]
	if !ok {
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}

	m := view.NewManager(t.gc.Client)
	v, err := m.CreateContainerView(ctx, t.gc.Client.ServiceContent.RootFolder, []string{kind}, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = v.Destroy(ctx) }()

	var raw []mo.ManagedEntity
	if err := v.Retrieve(ctx, []string{kind}, []string{"name"}, &raw); err != nil {
		return nil, err
	}

	objects := make([]TaggedObject, 0, len(raw))
	for _, o := range raw {
		objects = append(objects, TaggedObject{ID: o.Self.Value, Name: o.Name})
	}
	return objects, nil
}

func (t *govmomiTagClient) Attachments(ctx context.Context, objType ObjectType, objectIDs []string) ([]Attachment, error) {
	kind, ok := objectKinds[objType]
	if !ok {
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}

	attachments := make([]Attachment, 0, len(objectIDs))
	for _, id := range objectIDs {
		ref := types.ManagedObjectReference{Type: kind, Value: id}
		tagIDs, err := t.mgr.ListAttachedTags(ctx, ref)
		if err != nil {
			return nil, err
		}
		if len(tagIDs) == 0 {
			continue
		}
		attachments = append(attachments, Attachment{ObjectID: id, TagIDs: tagIDs})
	}
	return attachments, nil
}

func (t *govmomiTagClient) Close(ctx context.Context) error {
	if err := t.rc.Logout(ctx); err != nil {
		return err
	}
	return t.gc.Logout(ctx)
}
