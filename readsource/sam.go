package readsource

import (
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/vlog"
)

// SAMSource reads one SAM text file, optionally gzipped.  SAM carries no
// secondary index, so Scan declares whole-contig coverage for every header
// reference and every Query re-reads the file front to back.  No handle is
// held between queries; the open/closed distinction still gates Query
// availability.
type SAMSource struct {
	// Path of the *.sam or *.sam.gz file.  Must be nonempty.
	Path string

	header    *sam.Header
	refByName map[string]*sam.Reference
	table     *sampleTable
}

// NewSAM returns an unopened SAM source.
func NewSAM(path string) *SAMSource {
	return &SAMSource{Path: path}
}

// Name implements Source.
func (s *SAMSource) Name() string { return s.Path }

// Size implements Source.
func (s *SAMSource) Size() (int64, error) { return fileSize(s.Path) }

func (s *SAMSource) newReader() (*sam.Reader, func() error, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, s.Path)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error { return in.Close(ctx) }
	reader := io.Reader(in.Reader(ctx))
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			closer() // nolint: errcheck
			return nil, nil, err
		}
		reader = gz
	}
	sr, err := sam.NewReader(reader)
	if err != nil {
		closer() // nolint: errcheck
		return nil, nil, err
	}
	return sr, closer, nil
}

// Open implements Source.  It validates the header and builds the sample
// table; the file handle itself is released until the next Query.
func (s *SAMSource) Open() error {
	if s.header != nil {
		vlog.Panicf("readsource: %s: opening an open source", s.Path)
	}
	sr, closer, err := s.newReader()
	if err != nil {
		return err
	}
	header := sr.Header()
	if err := closer(); err != nil {
		return err
	}
	table, err := newSampleTable(header, s.Path)
	if err != nil {
		return err
	}
	s.header = header
	s.table = table
	s.refByName = make(map[string]*sam.Reference, len(header.Refs()))
	for _, ref := range header.Refs() {
		s.refByName[ref.Name()] = ref
	}
	return nil
}

// Scan implements Source.
func (s *SAMSource) Scan() (Meta, error) {
	if s.header == nil {
		vlog.Panicf("readsource: %s: scan of closed source", s.Path)
	}
	meta := Meta{
		Samples:  s.table.samples,
		Coverage: make(map[string][]interval.Span),
	}
	for _, ref := range s.header.Refs() {
		meta.Refs = append(meta.Refs, RefInfo{Name: ref.Name(), Length: ref.Len()})
		meta.Coverage[ref.Name()] = []interval.Span{{Start: 0, End: interval.PosType(ref.Len())}}
	}
	return meta, nil
}

// Query implements Source.  The whole file is re-read and filtered; record
// order within each sample follows file order.  Unmapped records are never
// returned.
func (s *SAMSource) Query(region interval.Region) (map[string][]*sam.Record, error) {
	if s.header == nil {
		vlog.Panicf("readsource: %s: query on closed source", s.Path)
	}
	result := map[string][]*sam.Record{}
	ref := s.refByName[region.Contig]
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
	sr, closer, err := s.newReader()
	if err != nil {
		return nil, err
	}
	for {
		rec, err := sr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			closer() // nolint: errcheck
			return nil, err
		}
		if rec.Ref == nil || rec.Flags&sam.Unmapped != 0 ||
			rec.Ref.Name() != region.Contig || rec.Pos >= end || rec.End() <= start {
			continue
		}
		if sample, ok := s.table.sampleOf(rec); ok {
			result[sample] = append(result[sample], rec)
		}
	}
	if err := closer(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close implements Source.
func (s *SAMSource) Close() error {
	s.header = nil
	s.refByName = nil
	s.table = nil
	return nil
}
