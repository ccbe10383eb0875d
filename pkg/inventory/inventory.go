// Package inventory turns raw endpoint objects into the API's record types.
// Every listing goes through the aggregate fan-out; per-resource filters
// (folders, tag categories, time windows) are applied here.
package inventory

import (
	"vcbridge/pkg/aggregate"
	"vcbridge/pkg/vsphere"
)

// Service exposes the read operations of the gateway. It is stateless apart
// from the injected fan-out and the dialer used for tag sessions.
type Service struct {
	fanout *aggregate.Fanout
	dialer vsphere.Dialer
}

// New creates the inventory service.
func New(fanout *aggregate.Fanout, dialer vsphere.Dialer) *Service {
	return &Service{fanout: fanout, dialer: dialer}
}
