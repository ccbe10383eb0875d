package models

// DiskDevice is one virtual disk attached to a VM.
type DiskDevice struct {
	Label     string `json:"label"`
	Datastore string `json:"datastore"`
	SizeGB    int    `json:"sizeGB"`
}

// NetworkDevice is one virtual NIC attached to a VM.
type NetworkDevice struct {
	Label          string `json:"label"`
	MacAddress     string `json:"macAddress"`
	Portgroup      string `json:"portgroup"`
	Connected      bool   `json:"connected"`
	StartConnected bool   `json:"startConnected"`
}

// VM is one virtual machine inventory record.
type VM struct {
	VCenter        string          `json:"vcenter"`
	Datacenter     string          `json:"datacenter"`
	Cluster        string          `json:"cluster"`
	ESXiHostname   string          `json:"esxiHostname"`
	Hostname       string          `json:"hostname"`
	IPAddress      string          `json:"ipAddress"`
	VMFolder       string          `json:"vmFolder,omitempty"`
	PowerState     string          `json:"powerState"`
	DiskDevices    []DiskDevice    `json:"diskDevices"`
	NetworkDevices []NetworkDevice `json:"networkDevices"`
	UUID           string          `json:"uuid"`
	InstanceUUID   string          `json:"instanceUuid"`
	Name           string          `json:"name"`
	NumCPU         int32           `json:"numCpu"`
	MemorySizeMB   int32           `json:"memorySizeMB"`
	Template       bool            `json:"template"`
	VMPathName     string          `json:"vmPathName"`
	GuestFullName  string          `json:"guestFullName"`
	HWVersion      string          `json:"hwVersion"`
}
