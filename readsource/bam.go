package readsource

import (
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"v.io/x/lib/vlog"
)

// BAMSource reads one BAM file, using its .bai index when present.  Without
// an index, Scan declares whole-contig coverage for every header reference
// and Query degrades to a filtered linear scan.
type BAMSource struct {
	// Path of the *.bam file.  Must be nonempty.
	Path string
	// Index is the pathname of the *.bam.bai file.  If "", Path + ".bai" is
	// tried first, then Path with the .bam suffix replaced by .bai.
	Index string

	in        file.File
	reader    *bam.Reader
	idx       *bam.Index
	firstRec  bgzf.Offset
	refByName map[string]*sam.Reference
	table     *sampleTable
}

// NewBAM returns an unopened BAM source.  index may be "" to derive the
// index path from path.
func NewBAM(path, index string) *BAMSource {
	return &BAMSource{Path: path, Index: index}
}

// Name implements Source.
func (b *BAMSource) Name() string { return b.Path }

// Size implements Source.
func (b *BAMSource) Size() (int64, error) { return fileSize(b.Path) }

// findIndex resolves the index path, returning "" if no index file is
// reachable.
func (b *BAMSource) findIndex() string {
	candidates := []string{b.Path + ".bai"}
	if b.Index != "" {
		candidates = []string{b.Index}
	} else if len(b.Path) > len(".bam") {
		candidates = append(candidates, b.Path[:len(b.Path)-len(".bam")]+".bai")
	}
	ctx := vcontext.Background()
	for _, path := range candidates {
		if _, err := file.Stat(ctx, path); err == nil {
			return path
		}
	}
	return ""
}

// Open implements Source.
func (b *BAMSource) Open() error {
	if b.reader != nil {
		vlog.Panicf("readsource: %s: opening an open source", b.Path)
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		return err
	}
	b.in = in
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		b.Close() // nolint: errcheck
		return err
	}
	b.reader = reader
	b.firstRec = reader.LastChunk().End
	if indexPath := b.findIndex(); indexPath != "" {
		indexIn, err := file.Open(ctx, indexPath)
		if err != nil {
			b.Close() // nolint: errcheck
			return err
		}
		b.idx, err = bam.ReadIndex(indexIn.Reader(ctx))
		indexIn.Close(ctx) // nolint: errcheck
		if err != nil {
			b.Close() // nolint: errcheck
			return err
		}
	}
	if b.table, err = newSampleTable(reader.Header(), b.Path); err != nil {
		b.Close() // nolint: errcheck
		return err
	}
	b.refByName = make(map[string]*sam.Reference, len(reader.Header().Refs()))
	for _, ref := range reader.Header().Refs() {
		b.refByName[ref.Name()] = ref
	}
	return nil
}

// Scan implements Source.  With an index the declared coverage is the union
// of populated 16KiB linear-index windows per reference; without one it is
// every whole reference in the header.
func (b *BAMSource) Scan() (Meta, error) {
	if b.reader == nil {
		vlog.Panicf("readsource: %s: scan of closed source", b.Path)
	}
	meta := Meta{
		Samples:  b.table.samples,
		Coverage: make(map[string][]interval.Span),
	}
	refs := b.reader.Header().Refs()
	for _, ref := range refs {
		meta.Refs = append(meta.Refs, RefInfo{Name: ref.Name(), Length: ref.Len()})
	}
	if indexPath := b.findIndex(); indexPath != "" {
		ctx := vcontext.Background()
		indexIn, err := file.Open(ctx, indexPath)
		if err != nil {
			return Meta{}, err
		}
		bai, err := parseBAI(indexIn.Reader(ctx))
		indexIn.Close(ctx) // nolint: errcheck
		if err != nil {
			return Meta{}, err
		}
		for refID, ref := range refs {
			if refID >= len(bai.refs) {
				break
			}
			spans := bai.refs[refID].coverageSpans(interval.PosType(ref.Len()))
			if len(spans) > 0 {
				meta.Coverage[ref.Name()] = spans
			}
		}
		return meta, nil
	}
	for _, ref := range refs {
		meta.Coverage[ref.Name()] = []interval.Span{{Start: 0, End: interval.PosType(ref.Len())}}
	}
	return meta, nil
}

// Query implements Source.  The index narrows the scan to the bgzf chunk
// containing the first candidate record; indexed files are
// coordinate-sorted, so iteration stops at the first record past the query
// range.  Unindexed files are scanned in full.  Unmapped records are never
// returned.
func (b *BAMSource) Query(region interval.Region) (map[string][]*sam.Record, error) {
	if b.reader == nil {
		vlog.Panicf("readsource: %s: query on closed source", b.Path)
	}
	result := map[string][]*sam.Record{}
	ref := b.refByName[region.Contig]
	if ref == nil {
		return result, nil
	}
	start, end := int(region.Start), int(region.End)
	if start < 0 {
		start = 0
	}
	if end > ref.Len() {
		end = ref.Len()
	}
	if start >= end {
		return result, nil
	}

	sorted := false
	seekTo := b.firstRec
	if b.idx != nil {
		chunks, err := b.idx.Chunks(ref, start, end)
		if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		seekTo = chunks[0].Begin
		sorted = true
	}
	if err := b.reader.Seek(seekTo); err != nil {
		return nil, err
	}
	for {
		rec, err := b.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec.Ref == nil {
			if sorted {
				break
			}
			continue
		}
		if sorted && (rec.Ref.ID() > ref.ID() || (rec.Ref.ID() == ref.ID() && rec.Pos >= end)) {
			break
		}
		if rec.Flags&sam.Unmapped != 0 ||
			rec.Ref.ID() != ref.ID() || rec.Pos >= end || rec.End() <= start {
			continue
		}
		if sample, ok := b.table.sampleOf(rec); ok {
			result[sample] = append(result[sample], rec)
		}
	}
	return result, nil
}

// Close implements Source.
func (b *BAMSource) Close() error {
	var err error
	if b.reader != nil {
		err = b.reader.Close()
		b.reader = nil
	}
	if b.in != nil {
		if cerr := b.in.Close(vcontext.Background()); cerr != nil && err == nil {
			err = cerr
		}
		b.in = nil
	}
	b.idx = nil
	b.refByName = nil
	b.table = nil
	return err
}
