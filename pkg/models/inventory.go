package models

// Host is one ESXi host inventory record.
type Host struct {
	VCenter string   `json:"vcenter"`
	Name    string   `json:"name"`
	MoID    string   `json:"moId"`
	Tags    []string `json:"tags"`
}

// Cluster is one compute cluster inventory record.
type Cluster struct {
	VCenter string   `json:"vcenter"`
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Hosts   []string `json:"hosts"`
}

// Datastore is one datastore inventory record, with the tags that matched
// the requested category.
type Datastore struct {
	VCenter     string   `json:"vcenter"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	CapacityGB  int      `json:"capacityGB"`
	FreeSpaceGB int      `json:"freeSpaceGB"`
	Hosts       []string `json:"hosts"`
	TagCategory string   `json:"tagCategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// PortGroup is one network/portgroup inventory record.
type PortGroup struct {
	VCenter     string   `json:"vcenter"`
	Name        string   `json:"name"`
	Hosts       []string `json:"hosts"`
	TagCategory string   `json:"tagCategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// VMFolder is one virtual machine folder below an endpoint's base folder.
type VMFolder struct {
	VCenter string `json:"vcenter"`
	Name    string `json:"name"`
}

// Snapshot is one VM snapshot flattened out of the snapshot tree. ParentID
// is -1 for root snapshots.
type Snapshot struct {
	VCenter        string `json:"vcenter"`
	Datacenter     string `json:"datacenter"`
	VMInstanceUUID string `json:"vmInstanceUuid"`
	VMName         string `json:"vmName"`
	VMFolder       string `json:"vmFolder,omitempty"`
	Name           string `json:"name"`
	ID             int32  `json:"id"`
	ParentID       int32  `json:"parentId"`
	Description    string `json:"description"`
	CreateTime     string `json:"createTime"`
	HasChild       bool   `json:"hasChild"`
}

// Alarm is one triggered alarm record.
type Alarm struct {
	VCenter          string `json:"vcenter"`
	Datacenter       string `json:"datacenter"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	CreatedTime      string `json:"createdTime"`
	Acknowledged     bool   `json:"acknowledged"`
	AcknowledgedTime string `json:"acknowledgedTime,omitempty"`
	AlarmSource      string `json:"alarmSource"`
}

// Event is one vCenter event record.
type Event struct {
	VCenter     string `json:"vcenter"`
	Datacenter  string `json:"datacenter"`
	EventType   string `json:"eventType"`
	Message     string `json:"message"`
	CreatedTime string `json:"createdTime"`
	EventSource string `json:"eventSource"`
	IPAddress   string `json:"ipAddress,omitempty"`
	UserName    string `json:"userName,omitempty"`
}

// VCenterInfo describes one configured endpoint as exposed by the
// /vcenters listing.
type VCenterInfo struct {
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	Port        int    `json:"port"`
	Description string `json:"description"`
}
