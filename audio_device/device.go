// Package audio_device resolves capture devices by name.
package audio_device

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// ErrDeviceNotFound is returned when no input device matches the requested
// name substring.
var ErrDeviceNotFound = fmt.Errorf("no matching input device")

// Info describes a capture-capable device.
type Info struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	HostAPI           string
}

// ResolveInput finds the first input-capable device whose name contains match
// (case-insensitive). Enumeration order is portaudio's, so the choice is
// deterministic for a given machine. PortAudio must be initialized.
func ResolveInput(match string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating audio devices: %w", err)
	}

	idx := matchInput(deviceNames(devices), inputChannelCounts(devices), match)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, match)
	}

	return devices[idx], nil
}

// ListInput returns every input-capable device, for the devices subcommand.
func ListInput() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating audio devices: %w", err)
	}

	infos := make([]Info, 0, len(devices))

	for i, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}

		hostAPI := ""
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}

		infos = append(infos, Info{
			Index:             i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			HostAPI:           hostAPI,
		})
	}

	return infos, nil
}

// matchInput holds the selection rule: first device with input channels whose
// name contains the match substring, case-insensitive.
func matchInput(names []string, inputChannels []int, match string) int {
	match = strings.ToLower(match)

	for i, name := range names {
		if inputChannels[i] <= 0 {
			continue
		}

		if strings.Contains(strings.ToLower(name), match) {
			return i
		}
	}

	return -1
}

func deviceNames(devices []*portaudio.DeviceInfo) []string {
	names := make([]string, len(devices))
	for i, dev := range devices {
		names[i] = dev.Name
	}
	return names
}

func inputChannelCounts(devices []*portaudio.DeviceInfo) []int {
	counts := make([]int, len(devices))
	for i, dev := range devices {
		counts[i] = dev.MaxInputChannels
	}
	return counts
}
