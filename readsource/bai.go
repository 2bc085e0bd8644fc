package readsource

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/hts/bgzf"
	"github.com/jbedo/octopus/interval"
)

// A .bai index stores, per reference, a binning index plus a linear index
// with one bgzf virtual offset per 16KiB window of the reference.  The
// header scan only needs the linear index: a populated window is evidence
// that reads may start in or span it, so maximal runs of populated windows
// become the source's declared coverage spans for that reference.

// baiLinearShift is the log2 width of one linear-index window.
const baiLinearShift = 14

type baiIndex struct {
	refs []baiReference
}

type baiReference struct {
	numBins   int32
	intervals []bgzf.Offset
	meta      baiMetadata
	hasMeta   bool
}

type baiMetadata struct {
	mappedCount   uint64
	unmappedCount uint64
}

// parseBAI reads a .bai stream.  Bin chunk offsets are decoded and
// discarded; only the per-reference linear index and the pseudo-bin 37450
// read counts are retained.
func parseBAI(r io.Reader) (*baiIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[0:]); err != nil {
		return nil, err
	}
	if magic != [4]byte{'B', 'A', 'I', 0x1} {
		return nil, fmt.Errorf("bam index invalid magic: %v", magic)
	}
	var refCount int32
	if err := binary.Read(r, binary.LittleEndian, &refCount); err != nil {
		return nil, err
	}
	idx := &baiIndex{refs: make([]baiReference, refCount)}
	for refID := 0; int32(refID) < refCount; refID++ {
		var ref baiReference
		var binCount int32
		if err := binary.Read(r, binary.LittleEndian, &binCount); err != nil {
			return nil, err
		}
		for b := 0; int32(b) < binCount; b++ {
			var binNum uint32
			if err := binary.Read(r, binary.LittleEndian, &binNum); err != nil {
				return nil, err
			}
			var chunkCount int32
			if err := binary.Read(r, binary.LittleEndian, &chunkCount); err != nil {
				return nil, err
			}
			chunks := make([]uint64, 2*chunkCount)
			if err := binary.Read(r, binary.LittleEndian, chunks); err != nil {
				return nil, err
			}
			if binNum == 37450 {
				// Pseudo-bin holding file-region metadata and read counts.
				if chunkCount != 2 {
					return nil, fmt.Errorf("invalid metadata bin has %d chunks, should have 2", chunkCount)
				}
				ref.meta = baiMetadata{mappedCount: chunks[2], unmappedCount: chunks[3]}
				ref.hasMeta = true
			} else {
				ref.numBins++
			}
		}
		var intervalCount int32
		if err := binary.Read(r, binary.LittleEndian, &intervalCount); err != nil {
			return nil, err
		}
		ref.intervals = make([]bgzf.Offset, intervalCount)
		for inv := 0; int32(inv) < intervalCount; inv++ {
			var voffset uint64
			if err := binary.Read(r, binary.LittleEndian, &voffset); err != nil {
				return nil, err
			}
			ref.intervals[inv] = bgzf.Offset{File: int64(voffset >> 16), Block: uint16(voffset)}
		}
		idx.refs[refID] = ref
	}
	return idx, nil
}

// coverageSpans converts one reference's linear index into declared
// coverage.  Runs of populated windows coalesce into spans clamped to the
// reference length.  A reference with no alignment bins and a zero mapped
// count declares nothing; one with bins but an empty linear index falls
// back to whole-reference coverage.
func (ref *baiReference) coverageSpans(refLen interval.PosType) []interval.Span {
	if ref.numBins == 0 && (!ref.hasMeta || ref.meta.mappedCount == 0) {
		return nil
	}
	if len(ref.intervals) == 0 {
		return []interval.Span{{Start: 0, End: refLen}}
	}
	var spans []interval.Span
	runStart := -1
	for w, offset := range ref.intervals {
		populated := offset.File != 0 || offset.Block != 0
		if populated && runStart == -1 {
			runStart = w
		} else if !populated && runStart != -1 {
			spans = appendWindowSpan(spans, runStart, w, refLen)
			runStart = -1
		}
	}
	if runStart != -1 {
		spans = appendWindowSpan(spans, runStart, len(ref.intervals), refLen)
	}
	return spans
}

func appendWindowSpan(spans []interval.Span, startWindow, endWindow int, refLen interval.PosType) []interval.Span {
	start := int64(startWindow) << baiLinearShift
	end := int64(endWindow) << baiLinearShift
	if end > int64(refLen) {
		end = int64(refLen)
	}
	if end <= start {
		return spans
	}
	return append(spans, interval.Span{Start: interval.PosType(start), End: interval.PosType(end)})
}
