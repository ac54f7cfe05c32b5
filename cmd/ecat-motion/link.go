package main

import (
	"ecat402/pkg/fieldbus"
	"ecat402/pkg/fieldbus/simulated"
)

// newLink is the seam a real SOEM cgo binding plugs into, the way
// cmd/canopen's NewSocketcanBus is the concrete transport NewNetwork's
// abstract BusManager runs on top of. Frame encoding and NIC binding are
// owned by that external master library, not by this core, so no such
// binding ships in this repository; this always returns the in-memory
// simulated drive.
func newLink(ifname string) fieldbus.Link {
	return simulated.New()
}
