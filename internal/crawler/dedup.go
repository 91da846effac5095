package crawler

import (
	"sync"

	"golang.org/x/text/cases"
)

// DuplicateDetector remembers every title and h1 seen in a session and
// flags repeats. The first occurrence of a value is never a duplicate.
type DuplicateDetector struct {
	flagEmpty       bool
	caseInsensitive bool

	mu     sync.Mutex
	fold   cases.Caser
	titles map[string]struct{}
	h1s    map[string]struct{}
}

// DuplicateOption configures a DuplicateDetector.
type DuplicateOption func(*DuplicateDetector)

// WithFlagEmpty controls whether empty titles and h1s count as values.
// When false, empty values are never flagged and never recorded.
func WithFlagEmpty(flag bool) DuplicateOption {
	return func(d *DuplicateDetector) {
		d.flagEmpty = flag
	}
}

// WithCaseInsensitive makes comparisons use Unicode case folding.
func WithCaseInsensitive(ci bool) DuplicateOption {
	return func(d *DuplicateDetector) {
		d.caseInsensitive = ci
	}
}

// NewDuplicateDetector creates a detector. Empty values are tracked by default.
func NewDuplicateDetector(opts ...DuplicateOption) *DuplicateDetector {
	d := &DuplicateDetector{
		flagEmpty: true,
		fold:      cases.Fold(),
		titles:    make(map[string]struct{}),
		h1s:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckAndRecord reports whether title and h1 were seen before, then
// records them. Both checks happen before either insert.
func (d *DuplicateDetector) CheckAndRecord(title, h1 string) (dupTitle, dupH1 bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.checkAndRecordLocked(d.titles, title), d.checkAndRecordLocked(d.h1s, h1)
}

func (d *DuplicateDetector) checkAndRecordLocked(seen map[string]struct{}, value string) bool {
	if value == "" && !d.flagEmpty {
		return false
	}

	key := value
	if d.caseInsensitive {
		key = d.fold.String(value)
	}

	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}
