package label

import (
	"regexp"
	"strconv"
	"time"
)

// Layout is the textual form of a backup label: UTC, second resolution,
// fixed width. The text doubles as the backup's directory name at the
// destination, so listing order and label order agree.
const Layout = "20060102T150405Z"

var pattern = regexp.MustCompile(`^(\d{8})T(\d{6})Z$`)

// Label identifies a single backup run. It carries the raw text plus the
// (date, time) integer pair used for ordering.
type Label struct {
	text  string
	date  int // YYYYMMDD
	clock int // HHMMSS
}

// Now returns the label for the current instant.
func Now() Label {
	return At(time.Now())
}

// At returns the label for the given instant, normalized to UTC.
func At(t time.Time) Label {
	l, _ := Parse(t.UTC().Format(Layout))
	return l
}

// Parse accepts only a full match of the label format. Partial or
// loosely-formatted names are rejected, not prefix-matched.
func Parse(s string) (Label, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Label{}, false
	}
	date, _ := strconv.Atoi(m[1])
	clock, _ := strconv.Atoi(m[2])
	return Label{text: s, date: date, clock: clock}, true
}

func (l Label) String() string {
	return l.text
}

// Compare orders two labels by their (date, time) pair and returns
// -1, 0 or +1. This is the one canonical ordering; catalog sorting and
// retention selection both go through it.
func (l Label) Compare(o Label) int {
	if l.date != o.date {
		if l.date < o.date {
			return -1
		}
		return 1
	}
	if l.clock != o.clock {
		if l.clock < o.clock {
			return -1
		}
		return 1
	}
	return 0
}

// Before reports whether l orders strictly before o.
func (l Label) Before(o Label) bool {
	return l.Compare(o) < 0
}
