//go:build windows

package playback

import "github.com/gen2brain/malgo"

// backends prefers WASAPI, the same audio stack the loopback capture uses.
func backends() []malgo.Backend {
	return []malgo.Backend{malgo.BackendWasapi}
}

// HelpText returns platform-specific help for device selection
func HelpText() string {
	return `Windows Playback Device Selection:
- Uses WASAPI shared mode
- Set playback.device to one of the names printed by 'loopback devices'
- Leave it empty to follow the Windows default output device
`
}
