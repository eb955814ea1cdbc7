package provision

import (
	"fmt"
	"strings"
)

// Free-tier eligible compute shapes.
const (
	ARMShape   = "VM.Standard.A1.Flex"
	MicroShape = "VM.Standard.E2.1.Micro"
)

// MinBootVolumeGB is the smallest boot volume Oracle accepts. Requests below
// the floor are clamped upward during Normalize.
const MinBootVolumeGB = 50

// Flex shape sizing for the always-free ARM allowance.
const (
	armShapeOCPUs    = float32(1)
	armShapeMemoryGB = float32(6)
)

// Request holds everything needed to launch one instance. It is built once
// at startup from configuration plus resolved provider parameters, normalized,
// and read-only thereafter.
type Request struct {
	// AvailabilityDomains is the candidate list; attempts cycle through it.
	AvailabilityDomains []string

	Shape            string
	ImageID          string
	SubnetID         string
	DisplayName      string
	SSHPublicKey     string
	AssignPublicIP   bool
	BootVolumeSizeGB int64
}

// Normalize validates the request and applies invariants. It clamps the boot
// volume to the provider floor and rejects requests missing required fields.
func (r *Request) Normalize() error {
	if len(r.AvailabilityDomains) == 0 {
		return fmt.Errorf("request has no availability domains")
	}
	if r.Shape == "" {
		return fmt.Errorf("request has no compute shape")
	}
	if r.ImageID == "" {
		return fmt.Errorf("request has no image")
	}
	if r.SubnetID == "" {
		return fmt.Errorf("request has no subnet")
	}
	if r.DisplayName == "" {
		return fmt.Errorf("request has no display name")
	}
	if r.SSHPublicKey == "" {
		return fmt.Errorf("request has no ssh public key")
	}
	if r.BootVolumeSizeGB < MinBootVolumeGB {
		r.BootVolumeSizeGB = MinBootVolumeGB
	}
	return nil
}

// AvailabilityDomain returns the domain to target for the given attempt,
// cycling through the candidate list so repeated attempts spread across
// domains the way the free-tier placement requires.
func (r *Request) AvailabilityDomain(attempt int) string {
	return r.AvailabilityDomains[attempt%len(r.AvailabilityDomains)]
}

// IsFlexShape reports whether the shape needs an explicit OCPU/memory
// configuration (the A1 Flex family does, the fixed Micro shape does not).
func (r *Request) IsFlexShape() bool {
	return strings.HasPrefix(r.Shape, "VM.Standard.A1")
}

// ShapeConfig returns the OCPU count and memory for flex shapes, sized to the
// always-free allowance. ok is false for fixed shapes.
func (r *Request) ShapeConfig() (ocpus, memoryGB float32, ok bool) {
	if !r.IsFlexShape() {
		return 0, 0, false
	}
	return armShapeOCPUs, armShapeMemoryGB, true
}
