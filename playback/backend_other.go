//go:build !windows

package playback

import "github.com/gen2brain/malgo"

// backends lets miniaudio pick (PulseAudio/PipeWire, ALSA, CoreAudio...).
func backends() []malgo.Backend {
	return nil
}

// HelpText returns platform-specific help for device selection
func HelpText() string {
	return `Linux/macOS Playback Device Selection:
- miniaudio picks the first working backend (PulseAudio/PipeWire, ALSA, CoreAudio)
- Set playback.device to one of the names printed by 'loopback devices'
- Leave it empty to use the default output device
`
}
