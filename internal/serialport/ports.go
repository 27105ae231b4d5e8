package serialport

import (
	"fmt"
	"slices"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortDescriptor is a discovered serial device.
type PortDescriptor struct {
	Path        string
	Description string
}

// Placeholder stands in for the port list when nothing was found.
var Placeholder = PortDescriptor{Description: "No ports detected"}

func (d PortDescriptor) Label() string {
	if d.Path == "" {
		return d.Description
	}
	return fmt.Sprintf("%s - %s", d.Path, d.Description)
}

// ListPorts returns the serial devices currently present, sorted by path.
func ListPorts() ([]PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		names, listErr := serial.GetPortsList()
		if listErr != nil {
			return nil, fmt.Errorf("failed to list ports: %w", listErr)
		}
		ports := make([]PortDescriptor, 0, len(names))
		for _, name := range names {
			ports = append(ports, PortDescriptor{Path: name, Description: "n/a"})
		}
		sortPorts(ports)
		return ports, nil
	}

	ports := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		ports = append(ports, describe(d))
	}
	sortPorts(ports)
	return ports, nil
}

func describe(d *enumerator.PortDetails) PortDescriptor {
	desc := "n/a"
	switch {
	case strings.TrimSpace(d.Product) != "":
		desc = strings.TrimSpace(d.Product)
	case d.IsUSB:
		desc = fmt.Sprintf("USB VID:PID=%s:%s", strings.ToUpper(d.VID), strings.ToUpper(d.PID))
	}
	return PortDescriptor{Path: d.Name, Description: desc}
}

func sortPorts(ports []PortDescriptor) {
	slices.SortFunc(ports, func(a, b PortDescriptor) int {
		return strings.Compare(a.Path, b.Path)
	})
}
