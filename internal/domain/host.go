package domain

// HostStatus is the status a host is created with or toggled to.
type HostStatus string

const (
	// HostStatusAvailable is the empty status sent for a regular host.
	HostStatusAvailable HostStatus = ""
	// HostStatusMaintenance excludes the host from normal scheduling.
	HostStatusMaintenance HostStatus = "maintenance"
)

// StatusFor returns the status a new host is submitted with.
func StatusFor(maintenance bool) HostStatus {
	if maintenance {
		return HostStatusMaintenance
	}
	return HostStatusAvailable
}

// Host is a machine participating in the storage cluster.
// Hostname is unique within the cluster; the remaining fields are informational.
type Host struct {
	Hostname string        `json:"hostname"`
	Addr     string        `json:"addr,omitempty"`
	Labels   []string      `json:"labels,omitempty"`
	Status   HostStatus    `json:"status"`
	Services []HostService `json:"services,omitempty"`
}

// InMaintenance reports whether the host is in maintenance.
func (h Host) InMaintenance() bool {
	return h.Status == HostStatusMaintenance
}

// HostService is a daemon running on a host.
type HostService struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// CreateHostRequest is the request body for adding a host.
type CreateHostRequest struct {
	Hostname    string `json:"hostname"`
	Maintenance bool   `json:"maintenance"`
}

// UpdateMaintenanceRequest is the request body for toggling maintenance.
type UpdateMaintenanceRequest struct {
	Maintenance bool `json:"maintenance"`
}

// Hostnames extracts the hostname of every host, preserving order.
func Hostnames(hosts []Host) []string {
	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.Hostname)
	}
	return names
}
