package display

import "fmt"

var sizeSuffixes = [...]string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// FormatBytes renders a byte count in binary units (B, KiB, MiB, ...).
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < len(sizeSuffixes)-1; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), sizeSuffixes[exp])
}

// FormatBytesWithSign prefixes the size with + or - for delta display
// ("- 1.2 GiB" meaning the output shrank relative to the source).
func FormatBytesWithSign(bytes int64) string {
	switch {
	case bytes > 0:
		return "+ " + FormatBytes(bytes)
	case bytes < 0:
		return "- " + FormatBytes(-bytes)
	default:
		return FormatBytes(0)
	}
}

// FormatBitrateLabel returns a short label for bitrate in kbps: "800 kbps"
// below 1000, else megabits with one decimal (1200 gives "1.2 Mbps").
func FormatBitrateLabel(kbps int64) string {
	if kbps < 1000 {
		return fmt.Sprintf("%d kbps", kbps)
	}
	return fmt.Sprintf("%.1f Mbps", float64(kbps)/1000)
}
