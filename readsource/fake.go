package readsource

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"v.io/x/lib/vlog"
)

// Fake is an in-memory Source for unittests.  It yields the given records
// and logs every lifecycle call so tests can assert exact open/close
// traffic.
type Fake struct {
	// StatErr, when set, makes Size fail (an unreachable file).
	StatErr error
	// OpenErr, when set, makes Open fail.
	OpenErr error
	// QueryErr, when set, makes Query fail.
	QueryErr error
	// Events records "open", "close" and "query <region>" in call order.
	Events []string

	name string
	size int64
	meta Meta
	recs map[string][]*sam.Record
	open bool
}

// NewFake creates a closed source that declares meta from its header scan
// and serves recs (sample -> records in native order) from queries.
func NewFake(name string, size int64, meta Meta, recs map[string][]*sam.Record) *Fake {
	return &Fake{name: name, size: size, meta: meta, recs: recs}
}

// Name implements Source.
func (f *Fake) Name() string { return f.name }

// Size implements Source.
func (f *Fake) Size() (int64, error) {
	if f.StatErr != nil {
		return 0, f.StatErr
	}
	return f.size, nil
}

// IsOpen returns whether the fake is currently open.
func (f *Fake) IsOpen() bool { return f.open }

// CountEvents returns the number of recorded events with the given prefix.
func (f *Fake) CountEvents(prefix string) int {
	n := 0
	for _, ev := range f.Events {
		if len(ev) >= len(prefix) && ev[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Open implements Source.
func (f *Fake) Open() error {
	if f.open {
		vlog.Panicf("readsource: %s: opening an open source", f.name)
	}
	if f.OpenErr != nil {
		return f.OpenErr
	}
	f.open = true
	f.Events = append(f.Events, "open")
	return nil
}

// Scan implements Source.
func (f *Fake) Scan() (Meta, error) {
	if !f.open {
		vlog.Panicf("readsource: %s: scan of closed source", f.name)
	}
	return f.meta, nil
}

// Query implements Source.  Records are matched on their actual
// coordinates, independent of the declared coverage, and returned as copies
// so the code under test cannot alter the originals.
func (f *Fake) Query(region interval.Region) (map[string][]*sam.Record, error) {
	if !f.open {
		vlog.Panicf("readsource: %s: query on closed source", f.name)
	}
	f.Events = append(f.Events, fmt.Sprintf("query %s", region))
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	result := map[string][]*sam.Record{}
	start, end := int(region.Start), int(region.End)
	for sample, recs := range f.recs {
		for _, rec := range recs {
			if rec.Ref == nil || rec.Ref.Name() != region.Contig ||
				rec.Pos >= end || rec.End() <= start {
				continue
			}
			cp := sam.GetFromFreePool()
			*cp = *rec
			result[sample] = append(result[sample], cp)
		}
	}
	return result, nil
}

// Close implements Source.
func (f *Fake) Close() error {
	if f.open {
		f.open = false
		f.Events = append(f.Events, "close")
	}
	return nil
}
