package utils

import "fmt"

// FormatCountdown renders seconds as whole hours and minutes; leftover
// seconds are dropped.
// Example: 2600 => "0h 43m"
func FormatCountdown(seconds uint64) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}
