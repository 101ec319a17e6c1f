package run

import (
	"github.com/sells-group/dealer-scout/internal/model"
)

// Deduplicator owns the run-wide set of admitted record keys. It lives for
// exactly one run; a new run starts with an empty set.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Admit reports whether rec's key has not been seen this run, recording it
// as seen. At most one record per key is ever admitted.
func (d *Deduplicator) Admit(rec *model.Record) bool {
	key := rec.DedupKey()
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys admitted so far.
func (d *Deduplicator) Len() int { return len(d.seen) }
