package readmanager

import (
	"github.com/jbedo/octopus/interval"
)

// regionIndex maps source to contig to flattened coverage spans.  It is
// built during the startup scan and never mutated afterwards, so reads
// need no locking.
type regionIndex map[string]map[string][]interval.Span

func (ri regionIndex) add(name string, coverage map[string][]interval.Span) {
	contigs := make(map[string][]interval.Span, len(coverage))
	for contig, spans := range coverage {
		flat := interval.Flatten(append([]interval.Span(nil), spans...))
		if len(flat) > 0 {
			contigs[contig] = flat
		}
	}
	ri[name] = contigs
}

// couldContain reports whether the source might hold reads overlapping the
// region.  False positives are acceptable; false negatives are not, so the
// spans are the conservative superset recorded at scan time.
func (ri regionIndex) couldContain(name string, region interval.Region) bool {
	spans := ri[name][region.Contig]
	if len(spans) == 0 {
		return false
	}
	span := region.Span()
	return interval.AnyOverlap(spans, span.Start, span.End)
}

// sampleIndex maps each sample to the sources carrying it, in catalog
// order.  Like regionIndex it is immutable after construction.
type sampleIndex struct {
	bySample map[string][]string
	names    []string // first-seen order
}

func newSampleIndex() *sampleIndex {
	return &sampleIndex{bySample: make(map[string][]string)}
}

func (si *sampleIndex) add(name string, samples []string) {
	for _, sample := range samples {
		if _, ok := si.bySample[sample]; !ok {
			si.names = append(si.names, sample)
		}
		si.bySample[sample] = append(si.bySample[sample], name)
	}
}

func (si *sampleIndex) sources(sample string) ([]string, bool) {
	srcs, ok := si.bySample[sample]
	return srcs, ok
}
