// Package readmanager maintains a bounded pool of open alignment files and
// serves reads for (sample, region) requests across all of them.
//
// A Manager scans every file once at startup to learn which samples it
// carries and which reference regions it covers, then keeps at most
// Options.MaxOpenSources files open at a time.  Fetches that touch files
// that are not resident evict open ones by policy (smallest file first by
// default) before opening.  All pool mutations are serialized by one
// mutex; the region and sample indexes are immutable after construction
// and read without locking.
package readmanager

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"github.com/jbedo/octopus/readsource"
	"github.com/pkg/errors"
)

// Options configures a Manager.
type Options struct {
	// MaxOpenSources bounds the number of simultaneously open files.  It
	// must be positive.
	MaxOpenSources int
	// Policy orders sources for eviction and initial population.  Nil
	// selects SmallestFirst.
	Policy Policy
}

// Manager owns a catalog of alignment files and a bounded pool of open
// readers over them.
type Manager struct {
	mu    sync.Mutex
	srcs  map[string]readsource.Source
	order []string // catalog order
	sizes map[string]int64

	regions regionIndex
	samples *sampleIndex

	refs    []readsource.RefInfo
	refLens map[string]int

	pool   *readerPool
	closed bool
}

// NewFromPaths builds a Manager over the given alignment file paths.  File
// types are recognized by extension; every unrecognized path is reported in
// one error.
func NewFromPaths(paths []string, opts Options) (*Manager, error) {
	var bad []string
	srcs := make([]readsource.Source, 0, len(paths))
	for _, path := range paths {
		src, err := readsource.New(path)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		srcs = append(srcs, src)
	}
	if len(bad) > 0 {
		return nil, errors.Errorf("readmanager: bad read files:\n\t* %s", strings.Join(bad, "\n\t* "))
	}
	return New(srcs, opts)
}

// New builds a Manager over the given sources.  Every source is stat'ed
// up front and every unreachable one is reported in a single error, before
// any file is opened.  Each reachable source is then opened and scanned
// exactly once; the scan's reader is retained when the source belongs to
// the initial resident set (the first MaxOpenSources sources in policy
// order) and released otherwise, so the open-file budget holds throughout
// construction.
func New(sources []readsource.Source, opts Options) (*Manager, error) {
	if opts.MaxOpenSources <= 0 {
		return nil, errors.Errorf("readmanager: max open sources must be positive, got %d", opts.MaxOpenSources)
	}
	policy := opts.Policy
	if policy == nil {
		policy = SmallestFirst
	}

	m := &Manager{
		srcs:    make(map[string]readsource.Source, len(sources)),
		order:   make([]string, 0, len(sources)),
		sizes:   make(map[string]int64, len(sources)),
		regions: make(regionIndex, len(sources)),
		samples: newSampleIndex(),
		pool:    newReaderPool(opts.MaxOpenSources, policy),
	}
	var bad []string
	for _, src := range sources {
		name := src.Name()
		if _, ok := m.srcs[name]; ok {
			return nil, errors.Errorf("readmanager: duplicate read file %s", name)
		}
		m.srcs[name] = src
		m.order = append(m.order, name)
		size, err := src.Size()
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		m.sizes[name] = size
	}
	if len(bad) > 0 {
		return nil, errors.Errorf("readmanager: bad read files:\n\t* %s", strings.Join(bad, "\n\t* "))
	}

	// Initial residents: the first MaxOpenSources sources in ascending
	// policy order, so the default policy opens the smallest files.
	initial := make(map[string]bool, opts.MaxOpenSources)
	ranked := append([]string(nil), m.order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a := SourceInfo{Name: ranked[i], Size: m.sizes[ranked[i]]}
		b := SourceInfo{Name: ranked[j], Size: m.sizes[ranked[j]]}
		return policy(a, b) < 0
	})
	for i := 0; i < len(ranked) && i < opts.MaxOpenSources; i++ {
		initial[ranked[i]] = true
	}

	// Scan the transient sources first, one open file at a time, then the
	// initial residents, whose readers are retained.  This order keeps the
	// number of open files within the budget at every instant.
	metas := make(map[string]readsource.Meta, len(m.order))
	for _, name := range m.order {
		if !initial[name] {
			if err := m.scanOnce(m.srcs[name], false, metas); err != nil {
				m.pool.closeAll() // nolint: errcheck
				return nil, err
			}
		}
	}
	for _, name := range m.order {
		if initial[name] {
			if err := m.scanOnce(m.srcs[name], true, metas); err != nil {
				m.pool.closeAll() // nolint: errcheck
				return nil, err
			}
		}
	}
	m.refLens = make(map[string]int)
	for _, name := range m.order {
		m.regions.add(name, metas[name].Coverage)
		m.samples.add(name, metas[name].Samples)
		for _, ref := range metas[name].Refs {
			length, ok := m.refLens[ref.Name]
			if !ok {
				m.refLens[ref.Name] = ref.Length
				m.refs = append(m.refs, ref)
				continue
			}
			if length != ref.Length {
				m.pool.closeAll() // nolint: errcheck
				return nil, errors.Errorf("readmanager: %s: reference %s has length %d, other read files declare %d",
					name, ref.Name, ref.Length, length)
			}
		}
	}
	log.Printf("readmanager: indexed %d read files carrying %d samples, %d open",
		len(m.order), len(m.samples.names), m.pool.numOpen())
	return m, nil
}

// scanOnce opens src, stashes its samples and coverage in metas, and
// either adopts the open reader into the pool or closes it.
func (m *Manager) scanOnce(src readsource.Source, retain bool, metas map[string]readsource.Meta) error {
	name := src.Name()
	if err := src.Open(); err != nil {
		return errors.Wrapf(err, "%v: startup scan", name)
	}
	meta, err := src.Scan()
	if err != nil {
		src.Close() // nolint: errcheck
		return errors.Wrapf(err, "%v: startup scan", name)
	}
	if retain {
		m.pool.adopt(src, m.sizes[name])
	} else if err := src.Close(); err != nil {
		return errors.Wrapf(err, "%v: startup scan", name)
	}
	metas[name] = meta
	return nil
}

// Samples returns every sample carried by the catalog, ordered by first
// appearance in catalog order.
func (m *Manager) Samples() []string {
	return append([]string(nil), m.samples.names...)
}

// NumSamples returns the number of distinct samples in the catalog.
func (m *Manager) NumSamples() int { return len(m.samples.names) }

// Names returns the catalog's source paths in construction order.
func (m *Manager) Names() []string { return append([]string(nil), m.order...) }

// Refs returns the union of the catalog's reference dictionaries, ordered
// by first appearance.  Construction fails if two sources disagree on a
// reference length, so the union is unambiguous.
func (m *Manager) Refs() []readsource.RefInfo {
	return append([]readsource.RefInfo(nil), m.refs...)
}

// IsOpen reports whether the named source currently holds an open reader.
func (m *Manager) IsOpen(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.isOpen(name)
}

// NumOpen returns the number of currently open sources.
func (m *Manager) NumOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.numOpen()
}

// Fetch returns the sample's reads overlapping the region, concatenated
// across sources in the order the sources were queried.  Reads from one
// source keep their file order.  An unknown sample is an error; a known
// sample with no reads in the region yields an empty slice.
func (m *Manager) Fetch(sample string, region interval.Region) ([]*sam.Record, error) {
	perSample, err := m.FetchSamples([]string{sample}, region)
	if err != nil {
		return nil, err
	}
	return perSample[sample], nil
}

// FetchAll returns the region's reads for every sample in the catalog,
// keyed by sample.
func (m *Manager) FetchAll(region interval.Region) (map[string][]*sam.Record, error) {
	return m.FetchSamples(m.samples.names, region)
}

// FetchSamples returns the region's reads for the given samples, keyed by
// sample.  A source shared by several requested samples is visited once.
// Every requested sample appears as a key, with a nil slice when nothing
// overlapped.
func (m *Manager) FetchSamples(samples []string, region interval.Region) (map[string][]*sam.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("readmanager: manager is closed")
	}
	requested := make(map[string]bool, len(samples))
	var unknown []string
	for _, sample := range samples {
		if requested[sample] {
			continue
		}
		requested[sample] = true
		if _, ok := m.samples.sources(sample); !ok {
			unknown = append(unknown, sample)
		}
	}
	if len(unknown) > 0 {
		return nil, errors.Errorf("readmanager: unknown sample(s): %s", strings.Join(unknown, ", "))
	}
	result := make(map[string][]*sam.Record, len(requested))
	for sample := range requested {
		result[sample] = nil
	}

	// Candidates: the union of the samples' sources, deduplicated, keeping
	// only sources whose index might cover the region.
	seen := make(map[string]bool)
	var open, pending []string
	for _, sample := range samples {
		srcs, _ := m.samples.sources(sample)
		for _, name := range srcs {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !m.regions.couldContain(name, region) {
				continue
			}
			if m.pool.isOpen(name) {
				open = append(open, name)
			} else {
				pending = append(pending, name)
			}
		}
	}

	// Query the already-open candidates first, then open the rest in waves
	// no larger than the budget so residency never exceeds it.
	for _, name := range open {
		if err := m.queryInto(name, region, requested, result); err != nil {
			return nil, err
		}
	}
	for len(pending) > 0 {
		n := len(pending)
		if n > m.pool.capacity {
			n = m.pool.capacity
		}
		wave := pending[:n]
		pending = pending[n:]
		batch := make([]readsource.Source, len(wave))
		for i, name := range wave {
			batch[i] = m.srcs[name]
		}
		if err := m.pool.openBatch(batch, m.sizes); err != nil {
			return nil, err
		}
		for _, name := range wave {
			if err := m.queryInto(name, region, requested, result); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// queryInto queries one open source and appends the requested samples'
// reads to result.  Reads of samples the source carries but the caller did
// not request are dropped.
func (m *Manager) queryInto(name string, region interval.Region, requested map[string]bool, result map[string][]*sam.Record) error {
	perSample, err := m.pool.get(name).Query(region)
	if err != nil {
		return errors.Wrapf(err, "%v: query %v", name, region)
	}
	for sample, recs := range perSample {
		if requested[sample] {
			result[sample] = append(result[sample], recs...)
		}
	}
	return nil
}

// Close releases every open source.  It is idempotent, and any Fetch after
// Close fails.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.pool.closeAll()
}
