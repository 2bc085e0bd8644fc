package readsource

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/jbedo/octopus/interval"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAMSource(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "test.sam")
	require.NoError(t, ioutil.WriteFile(path, []byte(testSAM), 0600))

	src := NewSAM(path)
	size, err := src.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(testSAM)), size)

	require.NoError(t, src.Open())
	meta, err := src.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2"}, meta.Samples)
	assert.Equal(t, []RefInfo{{Name: "chr1", Length: 1000}, {Name: "chr2", Length: 800}}, meta.Refs)
	assert.Equal(t, map[string][]interval.Span{
		"chr1": {{Start: 0, End: 1000}},
		"chr2": {{Start: 0, End: 800}},
	}, meta.Coverage)

	assert.Equal(t, map[string][]string{"S1": {"r1"}, "S2": {"r2"}},
		queryNames(t, src, interval.Region{Contig: "chr1", Start: 0, End: 100}))
	assert.Equal(t, map[string][]string{"S2": {"r4"}},
		queryNames(t, src, interval.Region{Contig: "chr2", Start: 0, End: 800}))
	assert.Empty(t, queryNames(t, src, interval.Region{Contig: "chrM", Start: 0, End: 100}))
	require.NoError(t, src.Close())
}

func TestSAMSourceGzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "test.sam.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testSAM))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	src, err := New(path)
	require.NoError(t, err)
	require.NoError(t, src.Open())
	assert.Equal(t, map[string][]string{"S1": {"r1"}, "S2": {"r2"}},
		queryNames(t, src, interval.Region{Contig: "chr1", Start: 0, End: 100}))
	require.NoError(t, src.Close())
}

func TestSAMSourceMissing(t *testing.T) {
	src := NewSAM("/nonexistent/missing.sam")
	_, err := src.Size()
	assert.Error(t, err)
	assert.Error(t, src.Open())
}
