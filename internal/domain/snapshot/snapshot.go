// Package snapshot picks the canonical timestamped snapshot of a source.
package snapshot

import (
	"strings"
	"time"

	"github.com/okian/evalharvest/internal/domain/errkind"
)

// Layout is the timestamp format of snapshot labels, e.g.
// 2023_08_22T09_05_23.035568. A fractional part of one to six digits is
// mandatory.
const Layout = "2006_01_02T15_04_05"

const maxFractionDigits = 6

// Key is a parsed snapshot label.
type Key struct {
	Label string
	Time  time.Time
}

func (k Key) String() string { return k.Label }

// Before orders keys by timestamp, then by raw label.
func (k Key) Before(o Key) bool {
	if !k.Time.Equal(o.Time) {
		return k.Time.Before(o.Time)
	}
	return k.Label < o.Label
}

// Parse reads label with Layout. The boolean is false for labels that are
// not snapshots, such as "latest".
func Parse(label string) (Key, bool) {
	i := strings.LastIndexByte(label, '.')
	if i < 0 {
		return Key{}, false
	}
	frac := label[i+1:]
	if len(frac) == 0 || len(frac) > maxFractionDigits || strings.Trim(frac, "0123456789") != "" {
		return Key{}, false
	}

	t, err := time.Parse(Layout, label)
	if err != nil {
		return Key{}, false
	}
	return Key{Label: label, Time: t}, true
}

// Select returns the earliest parseable key. Labels that do not parse are
// ignored; if none parse the error wraps ErrEmptySelection.
func Select(labels []string) (Key, error) {
	var (
		best  Key
		found bool
	)
	for _, label := range labels {
		k, ok := Parse(label)
		if !ok {
			continue
		}
		if !found || k.Before(best) {
			best, found = k, true
		}
	}
	if !found {
		return Key{}, errkind.Wrap(ErrEmptySelection, strings.Join(labels, ","), nil)
	}
	return best, nil
}
