package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:\d+(?:\.\d+)?S)?)?$`)

// FormatDuration converts "P1DT2H30M" into "1d 2h 30m". Zero components
// are omitted and input that does not match the grammar is returned as is.
func FormatDuration(iso string) string {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return ""
	}
	m := isoDuration.FindStringSubmatch(strings.ToUpper(iso))
	if m == nil {
		return iso
	}

	parts := make([]string, 0, 3)
	for i, unit := range []string{"d", "h", "m"} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return iso
		}
		if n > 0 {
			parts = append(parts, strconv.Itoa(n)+unit)
		}
	}
	return strings.Join(parts, " ")
}

// connectionTime formats the gap between arrival and the next departure.
// It returns nil when either side is unknown or the gap is negative.
func connectionTime(arrival, nextDeparture time.Time) *string {
	if arrival.IsZero() || nextDeparture.IsZero() {
		return nil
	}
	gap := nextDeparture.Sub(arrival)
	if gap < 0 {
		return nil
	}
	minutes := int(gap / time.Minute)
	s := fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	return &s
}
