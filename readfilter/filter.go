// Package readfilter provides composable read predicates and in-place
// transforms applied to fetched alignments before downstream use.
//
// A Filter reports whether a read should be kept; chains of filters are
// conjunctive.  A Transform mutates a read that passed every filter.
package readfilter

import (
	"github.com/grailbio/hts/sam"
)

// Filter reports whether a read should be kept.
type Filter func(*sam.Record) bool

// Transform mutates a read in place.
type Transform func(*sam.Record)

// All combines filters into one that keeps a read only if every filter
// does.
func All(filters ...Filter) Filter {
	return func(rec *sam.Record) bool {
		for _, f := range filters {
			if !f(rec) {
				return false
			}
		}
		return true
	}
}

// DropUnmapped keeps only mapped reads.
func DropUnmapped(rec *sam.Record) bool { return rec.Flags&sam.Unmapped == 0 }

// DropDuplicates keeps only reads not flagged as PCR or optical
// duplicates.
func DropDuplicates(rec *sam.Record) bool { return rec.Flags&sam.Duplicate == 0 }

// DropQCFailed keeps only reads that passed platform quality control.
func DropQCFailed(rec *sam.Record) bool { return rec.Flags&sam.QCFail == 0 }

// DropSecondary keeps only primary alignments.
func DropSecondary(rec *sam.Record) bool { return rec.Flags&sam.Secondary == 0 }

// DropSupplementary keeps only non-supplementary alignments.
func DropSupplementary(rec *sam.Record) bool { return rec.Flags&sam.Supplementary == 0 }

// MinMapQ keeps reads whose mapping quality is at least min.
func MinMapQ(min byte) Filter {
	return func(rec *sam.Record) bool { return rec.MapQ >= min }
}

// MinReadLength keeps reads whose sequence length is at least n.
func MinReadLength(n int) Filter {
	return func(rec *sam.Record) bool { return rec.Seq.Length >= n }
}

// MaxReadLength keeps reads whose sequence length is at most n.
func MaxReadLength(n int) Filter {
	return func(rec *sam.Record) bool { return rec.Seq.Length <= n }
}

// MaskSoftClips zeroes the base qualities under soft-clipped bases so
// quality-weighted consumers ignore them.  Hard clips consume no bases and
// are skipped; reads without quality strings are left alone.
func MaskSoftClips(rec *sam.Record) {
	qual := rec.Qual
	if len(qual) == 0 {
		return
	}
	pos := 0
	for _, op := range rec.Cigar {
		switch op.Type() {
		case sam.CigarSoftClipped:
			for i := 0; i < op.Len() && pos+i < len(qual); i++ {
				qual[pos+i] = 0
			}
			pos += op.Len()
		case sam.CigarMatch, sam.CigarInsertion, sam.CigarEqual, sam.CigarMismatch:
			pos += op.Len()
		}
	}
}
