package extract

import (
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/unsafe"
)

const numSeenShards = 256

type seenShard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// seenSet is a sharded, thread-safe set of read identities.  Overlapping
// target regions fetch the same read more than once; the set lets exactly
// one worker emit it.
type seenSet struct {
	shards [numSeenShards]seenShard
}

func newSeenSet() *seenSet {
	s := &seenSet{}
	for i := 0; i < len(s.shards); i++ {
		s.shards[i].keys = make(map[string]struct{})
	}
	return s
}

// add records key and reports whether this call was the first to add it.
func (s *seenSet) add(key string) bool {
	h := seahash.Sum64(unsafe.StringToBytes(key))
	shard := &s.shards[int(h%uint64(numSeenShards))]

	shard.mu.Lock()
	_, dup := shard.keys[key]
	if !dup {
		shard.keys[key] = struct{}{}
	}
	shard.mu.Unlock()
	return !dup
}
