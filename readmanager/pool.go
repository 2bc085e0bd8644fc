package readmanager

import (
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
	"github.com/jbedo/octopus/readsource"
)

// SourceInfo describes one source for eviction-policy decisions.
type SourceInfo struct {
	// Name is the source path.
	Name string
	// Size is the on-disk size in bytes.
	Size int64
	// Seq is the pool admission sequence number, increasing with every
	// open.
	Seq int
}

// Policy orders sources for residency decisions.  The open source that
// sorts first is the next eviction victim, and initial population after the
// startup scan opens sources in ascending policy order.  A Policy must
// return 0 only for identical sources.
type Policy func(a, b SourceInfo) int

// SmallestFirst is the default Policy: the resident with the smallest
// on-disk size is evicted first, and the smallest sources are opened first
// at startup.  Small files are assumed cheapest to reopen; access recency
// plays no part.  Ties break by path so the order is deterministic.
func SmallestFirst(a, b SourceInfo) int {
	if a.Size != b.Size {
		if a.Size < b.Size {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Name, b.Name)
}

// poolEntry is one open source in the residency tree.
type poolEntry struct {
	src  readsource.Source
	info SourceInfo
	pool *readerPool
}

// Compare implements llrb.Comparable, delegating to the pool's policy.
func (e *poolEntry) Compare(c llrb.Comparable) int {
	return e.pool.policy(e.info, c.(*poolEntry).info)
}

// readerPool is the bounded set of open sources.  It owns their handles:
// admission opens a source and eviction closes it.  Callers hold the
// manager lock.
type readerPool struct {
	capacity  int
	policy    Policy
	seq       int
	residents llrb.Tree
	byName    map[string]*poolEntry
}

func newReaderPool(capacity int, policy Policy) *readerPool {
	return &readerPool{
		capacity: capacity,
		policy:   policy,
		byName:   make(map[string]*poolEntry),
	}
}

func (p *readerPool) isOpen(name string) bool {
	_, ok := p.byName[name]
	return ok
}

func (p *readerPool) get(name string) readsource.Source {
	entry := p.byName[name]
	if entry == nil {
		return nil
	}
	return entry.src
}

func (p *readerPool) numOpen() int { return len(p.byName) }

// checkBudget panics if residency exceeds capacity.  Exceeding the budget
// is a programming defect, never an I/O condition.
func (p *readerPool) checkBudget() {
	if len(p.byName) > p.capacity || p.residents.Len() != len(p.byName) {
		log.Panicf("readmanager: %d open sources exceed budget %d", len(p.byName), p.capacity)
	}
}

// open admits one source, evicting first if the pool is at capacity.  A
// failed open leaves the pool unchanged and the source closed.
func (p *readerPool) open(src readsource.Source, size int64) error {
	if p.isOpen(src.Name()) {
		log.Panicf("readmanager: %s: opening an open source", src.Name())
	}
	if len(p.byName) >= p.capacity {
		if err := p.evictOne(); err != nil {
			return err
		}
	}
	return p.admit(src, size)
}

// openBatch admits the whole batch, computing the number of needed
// evictions up front.  len(batch) must not exceed capacity; callers split
// larger candidate sets.
func (p *readerPool) openBatch(batch []readsource.Source, sizes map[string]int64) error {
	if len(batch) > p.capacity {
		log.Panicf("readmanager: batch of %d exceeds budget %d", len(batch), p.capacity)
	}
	need := len(batch) - (p.capacity - len(p.byName))
	for i := 0; i < need; i++ {
		if err := p.evictOne(); err != nil {
			return err
		}
	}
	for _, src := range batch {
		if err := p.admit(src, sizes[src.Name()]); err != nil {
			return err
		}
	}
	return nil
}

func (p *readerPool) admit(src readsource.Source, size int64) error {
	if err := src.Open(); err != nil {
		return err
	}
	p.adopt(src, size)
	return nil
}

// adopt admits a source that is already open, so the startup scan can
// retain its reader instead of closing and reopening it.
func (p *readerPool) adopt(src readsource.Source, size int64) {
	p.seq++
	entry := &poolEntry{
		src:  src,
		info: SourceInfo{Name: src.Name(), Size: size, Seq: p.seq},
		pool: p,
	}
	p.residents.Insert(entry)
	p.byName[src.Name()] = entry
	p.checkBudget()
}

// evictOne closes the resident the policy sorts first and returns its
// close error, if any.  Eviction proceeds even if the close fails; the
// handle is released either way.
func (p *readerPool) evictOne() error {
	min := p.residents.Min()
	if min == nil {
		log.Panicf("readmanager: eviction from an empty pool")
	}
	victim := min.(*poolEntry)
	p.residents.DeleteMin()
	delete(p.byName, victim.info.Name)
	return victim.src.Close()
}

// close releases one named resident.
func (p *readerPool) close(name string) error {
	entry := p.byName[name]
	if entry == nil {
		log.Panicf("readmanager: %s: closing a source that is not open", name)
	}
	p.residents.Delete(entry)
	delete(p.byName, name)
	return entry.src.Close()
}

// closeAll releases every resident, returning the first close error.
func (p *readerPool) closeAll() error {
	var firstErr error
	for name, entry := range p.byName {
		if err := entry.src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.byName, name)
	}
	p.residents = llrb.Tree{}
	return firstErr
}
