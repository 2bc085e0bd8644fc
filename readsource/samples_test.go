package readsource

import (
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHeader(t *testing.T, text string) *sam.Header {
	sr, err := sam.NewReader(strings.NewReader(text))
	require.NoError(t, err)
	return sr.Header()
}

func newAux(t *testing.T, name, val string) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(name), val)
	require.NoError(t, err)
	return aux
}

func TestSampleTableReadGroups(t *testing.T) {
	header := parseHeader(t,
		"@HD\tVN:1.6\n"+
			"@SQ\tSN:chr1\tLN:1000\n"+
			"@RG\tID:rg1\tSM:S1\tPL:ILLUMINA\n"+
			"@RG\tID:rg2\tSM:S2\n"+
			"@RG\tID:rg3\tSM:S1\n")
	table, err := newSampleTable(header, "x.bam")
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, table.samples)

	rec := sam.GetFromFreePool()
	rec.Name = "r1"
	rec.AuxFields = []sam.Aux{newAux(t, "RG", "rg3")}
	sample, ok := table.sampleOf(rec)
	assert.True(t, ok)
	assert.Equal(t, "S1", sample)

	// A record with an undeclared read group cannot be attributed when the
	// source holds more than one sample.
	rec.AuxFields = []sam.Aux{newAux(t, "RG", "rg9")}
	_, ok = table.sampleOf(rec)
	assert.False(t, ok)
	rec.AuxFields = nil
	_, ok = table.sampleOf(rec)
	assert.False(t, ok)
}

func TestSampleTableIDFallback(t *testing.T) {
	header := parseHeader(t,
		"@HD\tVN:1.6\n"+
			"@SQ\tSN:chr1\tLN:1000\n"+
			"@RG\tID:rg1\n")
	table, err := newSampleTable(header, "x.bam")
	require.NoError(t, err)
	assert.Equal(t, []string{"rg1"}, table.samples)
}

func TestSampleTablePseudoSample(t *testing.T) {
	header := parseHeader(t,
		"@HD\tVN:1.6\n"+
			"@SQ\tSN:chr1\tLN:1000\n")
	table, err := newSampleTable(header, "/data/tumor.bam")
	require.NoError(t, err)
	assert.Equal(t, []string{"tumor"}, table.samples)

	// Every record belongs to the pseudo-sample, tagged or not.
	rec := sam.GetFromFreePool()
	rec.Name = "r1"
	sample, ok := table.sampleOf(rec)
	assert.True(t, ok)
	assert.Equal(t, "tumor", sample)
}

func TestSampleNameFromPath(t *testing.T) {
	assert.Equal(t, "tumor", sampleNameFromPath("/data/tumor.bam"))
	assert.Equal(t, "normal", sampleNameFromPath("normal.sam.gz"))
	assert.Equal(t, "plain", sampleNameFromPath("plain"))
}
