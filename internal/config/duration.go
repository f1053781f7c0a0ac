package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationTermRe = regexp.MustCompile(`(?i)(\d+)\s*(day|hour|min|sec)s?`)

// ParseHumanDuration parses loose human duration strings of the form
// "1day 7hours 43min" into a time.Duration. Terms may appear in any order
// and combine additively.
func ParseHumanDuration(s string) (time.Duration, error) {
	matches := durationTermRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("config: %q is not a valid duration", s)
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("config: %q is not a valid duration: %w", s, err)
		}
		switch strings.ToLower(m[2]) {
		case "day":
			total += time.Duration(n) * 24 * time.Hour
		case "hour":
			total += time.Duration(n) * time.Hour
		case "min":
			total += time.Duration(n) * time.Minute
		case "sec":
			total += time.Duration(n) * time.Second
		}
	}
	return total, nil
}

// humanDurationValue is a pflag.Value that parses ParseHumanDuration's
// loose "1day 7hours 43min" syntax on Set, instead of Go's native
// duration syntax that pflag.Duration requires.
type humanDurationValue time.Duration

func (d *humanDurationValue) String() string { return time.Duration(*d).String() }

func (d *humanDurationValue) Set(s string) error {
	parsed, err := ParseHumanDuration(s)
	if err != nil {
		return err
	}
	*d = humanDurationValue(parsed)
	return nil
}

func (d *humanDurationValue) Type() string { return "duration" }
