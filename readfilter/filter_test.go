package readfilter

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
)

var chr1, _ = sam.NewReference("chr1", "", "", 1000, nil, nil)

func newRead(flags sam.Flags, mapq byte, seq string) *sam.Record {
	r := sam.GetFromFreePool()
	r.Name = "read"
	r.Ref = chr1
	r.Pos = 100
	r.Flags = flags
	r.MapQ = mapq
	r.Cigar = sam.Cigar{sam.NewCigarOp(sam.CigarMatch, len(seq))}
	r.Seq = sam.NewSeq([]byte(seq))
	return r
}

func TestFlagFilters(t *testing.T) {
	for _, tc := range []struct {
		filter Filter
		flag   sam.Flags
	}{
		{DropUnmapped, sam.Unmapped},
		{DropDuplicates, sam.Duplicate},
		{DropQCFailed, sam.QCFail},
		{DropSecondary, sam.Secondary},
		{DropSupplementary, sam.Supplementary},
	} {
		assert.True(t, tc.filter(newRead(0, 60, "ACGTACGT")))
		assert.False(t, tc.filter(newRead(tc.flag, 60, "ACGTACGT")))
	}
}

func TestMinMapQ(t *testing.T) {
	f := MinMapQ(20)
	assert.False(t, f(newRead(0, 19, "ACGT")))
	assert.True(t, f(newRead(0, 20, "ACGT")))
	assert.True(t, f(newRead(0, 60, "ACGT")))
}

func TestReadLength(t *testing.T) {
	min, max := MinReadLength(4), MaxReadLength(6)
	assert.False(t, min(newRead(0, 60, "ACG")))
	assert.True(t, min(newRead(0, 60, "ACGT")))
	assert.True(t, max(newRead(0, 60, "ACGTAC")))
	assert.False(t, max(newRead(0, 60, "ACGTACG")))
}

func TestAll(t *testing.T) {
	f := All(DropUnmapped, MinMapQ(20))
	assert.True(t, f(newRead(0, 30, "ACGT")))
	assert.False(t, f(newRead(sam.Unmapped, 30, "ACGT")))
	assert.False(t, f(newRead(0, 10, "ACGT")))
	assert.True(t, All()(newRead(0, 0, "ACGT")))
}

func TestMaskSoftClips(t *testing.T) {
	rec := newRead(0, 60, "ACGTACGTAC")
	rec.Cigar = sam.Cigar{
		sam.NewCigarOp(sam.CigarHardClipped, 3),
		sam.NewCigarOp(sam.CigarSoftClipped, 2),
		sam.NewCigarOp(sam.CigarMatch, 6),
		sam.NewCigarOp(sam.CigarSoftClipped, 2),
	}
	rec.Qual = []byte{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}
	MaskSoftClips(rec)
	assert.Equal(t, []byte{0, 0, 30, 30, 30, 30, 30, 30, 0, 0}, rec.Qual)

	// No soft clips: untouched.
	rec = newRead(0, 60, "ACGTAC")
	rec.Qual = []byte{20, 20, 20, 20, 20, 20}
	MaskSoftClips(rec)
	assert.Equal(t, []byte{20, 20, 20, 20, 20, 20}, rec.Qual)

	// Reads with no quality string are a no-op.
	rec = newRead(0, 60, "ACGT")
	rec.Qual = nil
	MaskSoftClips(rec)
	assert.Nil(t, rec.Qual)
}
