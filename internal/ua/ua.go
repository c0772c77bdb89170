// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  Folio only
// needs a coarse fingerprint: enough to log who submitted and to refuse
// crawlers when `requestinfo.block_bots` is on.
package ua

import (
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Info is the coarse fingerprint of one User-Agent header.
//
// Example (Chrome on macOS):
//
//	Browser "Chrome"   Version "125.0.6422"
//	OS      "MacOSX"   Device  "Desktop"   IsBot false
//
// Device is one of "Desktop", "Mobile", "Tablet", "Bot", or "Other".
type Info struct {
	Browser string
	Version string
	OS      string
	Device  string
	IsBot   bool
}

// Parse converts a raw header into Info.  An empty header is treated as a
// bot; real browsers always send one.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{Device: "Bot", IsBot: true}
	}
	u := surfer.Parse(raw)

	info := Info{
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: version(u.Browser.Version),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
	}

	switch {
	case info.IsBot:
		info.Device = "Bot"
	case u.DeviceType == surfer.DeviceComputer:
		info.Device = "Desktop"
	case u.DeviceType == surfer.DeviceTablet:
		info.Device = "Tablet"
	case u.DeviceType == surfer.DevicePhone, u.DeviceType == surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// version renders 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func version(v surfer.Version) string {
	parts := []string{strconv.Itoa(v.Major), strconv.Itoa(v.Minor), strconv.Itoa(v.Patch)}
	switch {
	case v.Patch != 0:
		return strings.Join(parts, ".")
	case v.Minor != 0:
		return strings.Join(parts[:2], ".")
	case v.Major != 0:
		return parts[0]
	}
	return ""
}
