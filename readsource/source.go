// Package readsource provides uniform access to per-file alignment read
// sources.  Each source exposes two capabilities behind one interface: a
// cheap header scan yielding the contigs the file may cover and the samples
// it holds, and a region query returning the overlapping reads grouped by
// sample.  One implementation exists per underlying file format (BAM, SAM),
// plus an in-memory fake for tests.
package readsource

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
)

// Meta is the result of a header scan.
type Meta struct {
	// Samples lists the sample identifiers declared by the source, in
	// declaration order, deduplicated.
	Samples []string
	// Coverage maps contig name to the sorted, disjoint half-open spans the
	// source may hold reads in.  The mapping is conservative: a span may
	// contain no reads, but reads never exist outside the mapped spans.
	Coverage map[string][]interval.Span
	// Refs holds the header's reference dictionary as (name, length) pairs
	// in header order, for consumers that write new alignment files.
	Refs []RefInfo
}

// RefInfo is one reference-dictionary entry.
type RefInfo struct {
	Name   string
	Length int
}

// Source is a single alignment file usable as a unit of open/close
// residency.  A Source starts closed.  Scan and Query require an open
// source; Close is idempotent.  Implementations are not safe for concurrent
// use; callers serialize access.
type Source interface {
	// Name returns the identifier (path) this source was created from.
	Name() string
	// Size returns the on-disk size.  It must work on a closed source and
	// must fail if the underlying file is unreachable; construction uses it
	// to validate the catalog.
	Size() (int64, error)
	// Open readies the source for Scan and Query calls.
	Open() error
	// Scan extracts header metadata without touching read data beyond the
	// header and any secondary index.
	Scan() (Meta, error)
	// Query returns the mapped reads overlapping region, grouped by sample,
	// preserving the source's native record order within each sample.
	Query(region interval.Region) (map[string][]*sam.Record, error)
	// Close releases the underlying handles.
	Close() error
}

// New returns an unopened Source for path, dispatching on the filename
// extension.
func New(path string) (Source, error) {
	switch {
	case strings.HasSuffix(path, ".bam"):
		return NewBAM(path, ""), nil
	case strings.HasSuffix(path, ".sam"), strings.HasSuffix(path, ".sam.gz"):
		return NewSAM(path), nil
	}
	return nil, fmt.Errorf("readsource.New %v: unknown file type", path)
}

// fileSize stats path without opening it.
func fileSize(path string) (int64, error) {
	ctx := vcontext.Background()
	info, err := file.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
