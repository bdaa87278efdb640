package playback

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// Device describes a playback device.
type Device struct {
	Name      string
	IsDefault bool
}

// ListDevices returns the available playback devices.
func ListDevices() ([]Device, error) {
	ctx, err := malgo.InitContext(backends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}
	defer freeContext(ctx)

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// findDevice matches a device by exact name first, then case-insensitively.
func findDevice(infos []malgo.DeviceInfo, name string) (malgo.DeviceInfo, bool) {
	for _, info := range infos {
		if info.Name() == name {
			return info, true
		}
	}
	for _, info := range infos {
		if strings.EqualFold(info.Name(), name) {
			return info, true
		}
	}
	return malgo.DeviceInfo{}, false
}
