// Package extract copies region- and sample-scoped reads out of a read
// catalog into a single new BAM file.  Regions are processed by parallel
// workers sharing one Manager; reads passing the configured filters are
// transformed in place and written once each, even when target regions
// overlap.  Record order across regions follows worker completion; within
// one source it follows that source's order.
package extract

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"github.com/jbedo/octopus/readfilter"
	"github.com/jbedo/octopus/readmanager"
)

// Config selects what to extract and how.
type Config struct {
	// Regions to fetch.  Overlapping regions are allowed; each read is
	// written once.
	Regions []interval.Region
	// Samples restricts the output to the given samples.  Empty means every
	// sample in the catalog.
	Samples []string
	// Filters drop reads before writing.  All must pass.
	Filters []readfilter.Filter
	// Transforms mutate kept reads, in order, before writing.
	Transforms []readfilter.Transform
	// Parallelism bounds the region workers.  Zero or negative means
	// runtime.NumCPU().
	Parallelism int
}

// Report summarizes one extraction.
type Report struct {
	// Regions is the number of target regions processed.
	Regions int
	// FetchedReads counts reads returned by the catalog before filtering
	// and duplicate suppression.
	FetchedReads int64
	// WrittenReads counts reads written to the output.
	WrittenReads int64
	// PerSample counts written reads by sample.
	PerSample map[string]int64
}

// Reads runs the extraction and writes a BAM stream to out.  The output
// header is the catalog's combined reference dictionary.
func Reads(mgr *readmanager.Manager, out io.Writer, config Config) (Report, error) {
	report := Report{Regions: len(config.Regions), PerSample: make(map[string]int64)}

	samples := mgr.Samples()
	if len(config.Samples) > 0 {
		known := make(map[string]bool, len(samples))
		for _, sample := range samples {
			known[sample] = true
		}
		samples = samples[:0]
		requested := make(map[string]bool, len(config.Samples))
		var unknown []string
		for _, sample := range config.Samples {
			if requested[sample] {
				continue
			}
			requested[sample] = true
			if !known[sample] {
				unknown = append(unknown, sample)
				continue
			}
			samples = append(samples, sample)
		}
		if len(unknown) > 0 {
			return report, fmt.Errorf("extract: unknown sample(s): %s", strings.Join(unknown, ", "))
		}
	}

	header, refByName, err := outputHeader(mgr)
	if err != nil {
		return report, err
	}
	bw, err := bam.NewWriter(out, header, 1)
	if err != nil {
		return report, err
	}
	regions := config.Regions
	if len(regions) == 0 || len(samples) == 0 {
		return report, bw.Close()
	}

	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(regions) {
		parallelism = len(regions)
	}

	keep := readfilter.All(config.Filters...)
	seen := newSeenSet()
	var (
		writeMu sync.Mutex
		fetched int64
	)
	workErr := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(regions)) / parallelism
		endIdx := ((jobIdx + 1) * len(regions)) / parallelism
		for _, region := range regions[startIdx:endIdx] {
			perSample, err := mgr.FetchSamples(samples, region)
			if err != nil {
				return err
			}
			batch := make([]staged, 0, 64)
			for _, sample := range samples {
				for _, rec := range perSample[sample] {
					atomic.AddInt64(&fetched, 1)
					if !keep(rec) || !seen.add(readKey(rec)) {
						sam.PutInFreePool(rec)
						continue
					}
					for _, transform := range config.Transforms {
						transform(rec)
					}
					if err := rebindRefs(rec, refByName); err != nil {
						return err
					}
					batch = append(batch, staged{sample: sample, rec: rec})
				}
			}
			writeMu.Lock()
			for _, s := range batch {
				if err := bw.Write(s.rec); err != nil {
					writeMu.Unlock()
					return err
				}
				report.WrittenReads++
				report.PerSample[s.sample]++
				sam.PutInFreePool(s.rec)
			}
			writeMu.Unlock()
		}
		return nil
	})
	e := errors.Once{}
	e.Set(workErr)
	e.Set(bw.Close())
	report.FetchedReads = atomic.LoadInt64(&fetched)
	if e.Err() == nil {
		log.Printf("extract: wrote %d of %d fetched reads over %d regions",
			report.WrittenReads, report.FetchedReads, report.Regions)
	}
	return report, e.Err()
}

type staged struct {
	sample string
	rec    *sam.Record
}

// outputHeader builds the output header from the catalog's combined
// reference dictionary.
func outputHeader(mgr *readmanager.Manager) (*sam.Header, map[string]*sam.Reference, error) {
	infos := mgr.Refs()
	refs := make([]*sam.Reference, 0, len(infos))
	byName := make(map[string]*sam.Reference, len(infos))
	for _, info := range infos {
		ref, err := sam.NewReference(info.Name, "", "", info.Length, nil, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("extract: reference %s: %v", info.Name, err)
		}
		refs = append(refs, ref)
		byName[info.Name] = ref
	}
	header, err := sam.NewHeader(nil, refs)
	if err != nil {
		return nil, nil, err
	}
	return header, byName, nil
}

// rebindRefs points the record at the output header's references.  Sources
// carry their own reference objects whose IDs need not match the combined
// dictionary.
func rebindRefs(rec *sam.Record, refs map[string]*sam.Reference) error {
	if rec.Ref != nil {
		ref := refs[rec.Ref.Name()]
		if ref == nil {
			return fmt.Errorf("extract: %s: reference %s missing from combined dictionary", rec.Name, rec.Ref.Name())
		}
		rec.Ref = ref
	}
	if rec.MateRef != nil {
		ref := refs[rec.MateRef.Name()]
		if ref == nil {
			return fmt.Errorf("extract: %s: mate reference %s missing from combined dictionary", rec.Name, rec.MateRef.Name())
		}
		rec.MateRef = ref
	}
	return nil
}

// readKey identifies one alignment record across fetches.  Name alone is
// not enough: mates share a name, and secondary or supplementary records
// share name and flags combinations at distinct positions.
func readKey(rec *sam.Record) string {
	refName := "*"
	if rec.Ref != nil {
		refName = rec.Ref.Name()
	}
	return fmt.Sprintf("%s\x00%d\x00%s\x00%d", rec.Name, rec.Flags, refName, rec.Pos)
}
