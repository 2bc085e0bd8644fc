package readmanager

import (
	"testing"

	"github.com/jbedo/octopus/interval"
	"github.com/stretchr/testify/assert"
)

func TestRegionIndex(t *testing.T) {
	ri := make(regionIndex)
	ri.add("a.bam", map[string][]interval.Span{
		"chr1": {{Start: 200, End: 300}, {Start: 0, End: 100}, {Start: 90, End: 120}},
	})

	// The scan's spans arrive unordered and overlapping; lookups see the
	// flattened form [0,120) and [200,300).
	assert.True(t, ri.couldContain("a.bam", reg("chr1", 110, 130)))
	assert.False(t, ri.couldContain("a.bam", reg("chr1", 120, 200)))
	assert.True(t, ri.couldContain("a.bam", reg("chr1", 150, 250)))
	assert.False(t, ri.couldContain("a.bam", reg("chr2", 0, 100)))
	assert.False(t, ri.couldContain("missing.bam", reg("chr1", 0, 100)))
}

func TestSampleIndex(t *testing.T) {
	si := newSampleIndex()
	si.add("a.bam", []string{"S2", "S1"})
	si.add("b.bam", []string{"S1", "S3"})

	assert.Equal(t, []string{"S2", "S1", "S3"}, si.names)
	srcs, ok := si.sources("S1")
	assert.True(t, ok)
	assert.Equal(t, []string{"a.bam", "b.bam"}, srcs)
	_, ok = si.sources("S9")
	assert.False(t, ok)
}
