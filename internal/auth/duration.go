package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var relativeExpiry = regexp.MustCompile(`^(\d+)([dwh])$`)

// ParseExpiration turns a token lifetime into an absolute expiry.
// Accepted forms: "" or "never" (no expiry), Go durations ("90m"),
// day/week/hour counts ("30d", "2w", "12h") and calendar dates written the
// Colombian way, "dd/mm/yyyy" or "dd/mm/yyyy HH:MM", interpreted in loc.
func ParseExpiration(expiresIn string, now time.Time, loc *time.Location) (*time.Time, error) {
	if expiresIn == "" || expiresIn == "never" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if dur, err := time.ParseDuration(expiresIn); err == nil {
		if dur <= 0 {
			return nil, fmt.Errorf("expiration must be positive: %s", expiresIn)
		}
		t := now.Add(dur)
		return &t, nil
	}

	for _, layout := range []string{"02/01/2006 15:04", "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, expiresIn, loc); err == nil {
			if !t.After(now) {
				return nil, fmt.Errorf("expiration date must be in the future: %s", expiresIn)
			}
			return &t, nil
		}
	}

	m := relativeExpiry.FindStringSubmatch(expiresIn)
	if m == nil {
		return nil, fmt.Errorf("invalid expiration format: %s (use 'never', '30d', '2w', '24h', '25/12/2026' or a Go duration)", expiresIn)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid number in expiration: %s", expiresIn)
	}

	unit := map[string]time.Duration{"h": time.Hour, "d": 24 * time.Hour, "w": 7 * 24 * time.Hour}[m[2]]
	t := now.Add(time.Duration(n) * unit)
	return &t, nil
}
