// Package udev discovers seat-assignable devices by parsing the udev
// database export (udevadm info -e). Only devices directly tagged with
// :seat: are reported; tag inheritance from parent devices is not resolved
// here, the registry takes the list as-is.
package udev

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/j-hartig/platzwart/internal/seat"
)

const defaultSeat = "seat0"

// Enumerator lists seat devices from the udev database. It satisfies
// seat.Enumerator.
type Enumerator struct {
	// dump returns the raw udevadm export; replaced in tests.
	dump func() ([]byte, error)
}

func New() *Enumerator {
	return &Enumerator{
		dump: func() ([]byte, error) {
			out, err := exec.Command("udevadm", "info", "-e").Output()
			if err != nil {
				return nil, fmt.Errorf("run udevadm info -e: %w", err)
			}
			return out, nil
		},
	}
}

// Devices returns the devices assigned to the given seat. Devices tagged
// :seat: without an explicit ID_SEAT property belong to seat0.
func (e *Enumerator) Devices(id seat.ID) ([]seat.Device, error) {
	out, err := e.dump()
	if err != nil {
		return nil, err
	}
	var devices []seat.Device
	for _, dev := range parseExport(out) {
		if dev.SeatTag == string(id) {
			devices = append(devices, dev)
		}
	}
	return devices, nil
}

// parseExport splits the export dump into per-device stanzas (separated by
// blank lines) and keeps seat-assignable ones.
func parseExport(out []byte) []seat.Device {
	var devices []seat.Device
	for _, stanza := range strings.Split(string(out), "\n\n") {
		if dev, ok := parseStanza(stanza); ok {
			devices = append(devices, dev)
		}
	}
	return devices
}

func parseStanza(stanza string) (seat.Device, bool) {
	var dev seat.Device
	assignable := false
	for _, line := range strings.Split(stanza, "\n") {
		switch {
		case strings.HasPrefix(line, "E: DEVNAME="):
			dev.Path = strings.TrimPrefix(line, "E: DEVNAME=")
		case strings.HasPrefix(line, "E: ID_SEAT="):
			dev.SeatTag = strings.TrimPrefix(line, "E: ID_SEAT=")
		case strings.HasPrefix(line, "E: TAGS=") && strings.Contains(line, ":seat:"):
			assignable = true
		}
	}
	if !assignable || dev.Path == "" {
		return seat.Device{}, false
	}
	if dev.SeatTag == "" {
		dev.SeatTag = defaultSeat
	}
	return dev, true
}
