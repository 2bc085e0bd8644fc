package interval

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Region is a single genomic interval: a contig name plus a 0-based
// half-open coordinate span.
type Region struct {
	Contig string
	Start  PosType
	End    PosType
}

// Span returns the coordinate part of the region.
func (r Region) Span() Span {
	return Span{r.Start, r.End}
}

// String renders the region in the usual 1-based inclusive text form.
func (r Region) String() string {
	if r.Start == 0 && r.End >= PosTypeMax-1 {
		return r.Contig
	}
	return fmt.Sprintf("%s:%d-%d", r.Contig, int64(r.Start)+1, int64(r.End))
}

// ParseRegion parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning 0-based half-open boundaries.  The span [0, PosTypeMax - 1) is
// returned if there is no positional restriction.
func ParseRegion(region string) (result Region, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.Contig = region
		result.Start = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty contig ID")
		return
	}
	result.Contig = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", rangeStr)
			return
		}
		result.Start = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegion: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	// end0 == PosTypeMax is prohibited so that unrestricted and restricted
	// spans can never collide.
	if end0 <= start1 || end0 >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegion: invalid range string %v", rangeStr)
		return
	}
	result.Start = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}

// ParseRegions reads one region per line: either a region string as accepted
// by ParseRegion, or a 3+ column BED line (tab-separated, 0-based half-open).
// Blank lines and lines starting with '#' are skipped.
func ParseRegions(reader io.Reader) (regions []Region, err error) {
	scanner := bufio.NewScanner(reader)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var region Region
		if region, err = parseRegionLine(line, lineIdx); err != nil {
			return
		}
		regions = append(regions, region)
	}
	err = scanner.Err()
	return
}

func parseRegionLine(line string, lineIdx int) (region Region, err error) {
	if strings.IndexByte(line, '\t') == -1 {
		if region, err = ParseRegion(line); err != nil {
			err = fmt.Errorf("interval.ParseRegions: line %d: %v", lineIdx, err)
		}
		return
	}
	tokens := strings.Split(line, "\t")
	if len(tokens) < 3 {
		err = fmt.Errorf("interval.ParseRegions: line %d has fewer tokens than expected", lineIdx)
		return
	}
	var start, end int
	if start, err = strconv.Atoi(tokens[1]); err != nil {
		err = fmt.Errorf("interval.ParseRegions: line %d: %v", lineIdx, err)
		return
	}
	if end, err = strconv.Atoi(tokens[2]); err != nil {
		err = fmt.Errorf("interval.ParseRegions: line %d: %v", lineIdx, err)
		return
	}
	if start < 0 || end < start || end >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegions: invalid coordinate pair on line %d", lineIdx)
		return
	}
	region = Region{Contig: tokens[0], Start: PosType(start), End: PosType(end)}
	return
}

// NewRegionsFromPath is a wrapper for ParseRegions that takes a path instead
// of an io.Reader.  Gzipped inputs are detected by suffix and decompressed.
func NewRegionsFromPath(path string) (regions []Region, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	if regions, err = ParseRegions(reader); err != nil {
		return
	}
	log.Printf("%d region(s) loaded from %s\n", len(regions), path)
	return
}

// GroupByContig flattens regions into a per-contig sorted span union.
func GroupByContig(regions []Region) map[string][]Span {
	byContig := make(map[string][]Span)
	for _, r := range regions {
		byContig[r.Contig] = append(byContig[r.Contig], r.Span())
	}
	for contig, spans := range byContig {
		byContig[contig] = Flatten(spans)
	}
	return byContig
}

// SubtractRegions removes every base covered by skips from regions.  The
// result is grouped by contig, flattened, and ordered by contig name then
// start coordinate.
func SubtractRegions(regions, skips []Region) []Region {
	kept := GroupByContig(regions)
	holes := GroupByContig(skips)
	contigs := make([]string, 0, len(kept))
	for contig := range kept {
		contigs = append(contigs, contig)
	}
	sort.Strings(contigs)
	var out []Region
	for _, contig := range contigs {
		for _, s := range Subtract(kept[contig], holes[contig]) {
			out = append(out, Region{Contig: contig, Start: s.Start, End: s.End})
		}
	}
	return out
}
