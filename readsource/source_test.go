package readsource

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDispatch(t *testing.T) {
	src, err := New("reads.bam")
	require.NoError(t, err)
	assert.IsType(t, &BAMSource{}, src)

	src, err = New("reads.sam")
	require.NoError(t, err)
	assert.IsType(t, &SAMSource{}, src)

	src, err = New("reads.sam.gz")
	require.NoError(t, err)
	assert.IsType(t, &SAMSource{}, src)

	_, err = New("reads.vcf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown file type")
}

func TestFakeQuery(t *testing.T) {
	chrT, err := sam.NewReference("chrT", "", "", 1000, nil, nil)
	require.NoError(t, err)
	rec := sam.GetFromFreePool()
	rec.Name = "r1"
	rec.Ref = chrT
	rec.Pos = 100
	rec.Cigar = []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 50)}

	fake := NewFake("f.bam", 10, Meta{Samples: []string{"S1"}}, map[string][]*sam.Record{"S1": {rec}})
	require.NoError(t, fake.Open())

	// Overlap is decided on actual record coordinates.
	for _, tc := range []struct {
		start, end interval.PosType
		want       int
	}{
		{0, 100, 0},   // ends at the record start
		{0, 101, 1},   // one base overlap
		{149, 300, 1}, // last covered base
		{150, 300, 0}, // begins at the record end
	} {
		result, err := fake.Query(interval.Region{Contig: "chrT", Start: tc.start, End: tc.end})
		require.NoError(t, err)
		assert.Len(t, result["S1"], tc.want, "region [%d, %d)", tc.start, tc.end)
	}

	// Copies are returned, originals stay intact.
	result, err := fake.Query(interval.Region{Contig: "chrT", Start: 0, End: 1000})
	require.NoError(t, err)
	result["S1"][0].Name = "clobbered"
	assert.Equal(t, "r1", rec.Name)

	require.NoError(t, fake.Close())
	assert.Equal(t, []string{"open", "query chrT:1-100", "query chrT:1-101",
		"query chrT:150-300", "query chrT:151-300", "query chrT:1-1000", "close"}, fake.Events)
	assert.Equal(t, 5, fake.CountEvents("query"))
}
