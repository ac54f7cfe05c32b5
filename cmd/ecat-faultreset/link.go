package main

import (
	"ecat402/pkg/fieldbus"
	"ecat402/pkg/fieldbus/simulated"
)

// newLink is the seam a real SOEM cgo binding plugs into; see
// cmd/ecat-motion/link.go for the rationale.
func newLink(ifname string) fieldbus.Link {
	return simulated.New()
}
