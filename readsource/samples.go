package readsource

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

var rgTag = sam.Tag{'R', 'G'}

// sampleTable resolves the records of one source to sample identifiers.
type sampleTable struct {
	sampleByRG map[string]string
	samples    []string
}

// newSampleTable extracts the @RG lines from the header text.  A read group
// without an SM field falls back to its ID; a header without read groups
// yields a single pseudo-sample named after the file, to which every record
// in the source belongs.
func newSampleTable(header *sam.Header, path string) (*sampleTable, error) {
	text, err := header.MarshalText()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: marshal header", path)
	}
	t := &sampleTable{sampleByRG: make(map[string]string)}
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "@RG") {
			continue
		}
		var id, sm string
		for _, field := range strings.Split(line, "\t")[1:] {
			switch {
			case strings.HasPrefix(field, "ID:"):
				id = field[len("ID:"):]
			case strings.HasPrefix(field, "SM:"):
				sm = field[len("SM:"):]
			}
		}
		if id == "" {
			return nil, errors.Errorf("%s: read group without ID field", path)
		}
		if sm == "" {
			sm = id
		}
		t.sampleByRG[id] = sm
		if !seen[sm] {
			seen[sm] = true
			t.samples = append(t.samples, sm)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(t.samples) == 0 {
		t.samples = []string{sampleNameFromPath(path)}
	}
	return t, nil
}

// sampleOf resolves rec to a sample.  Records without a usable RG tag are
// attributable only when the source holds exactly one sample.
func (t *sampleTable) sampleOf(rec *sam.Record) (string, bool) {
	if aux := rec.AuxFields.Get(rgTag); aux != nil {
		if id, ok := aux.Value().(string); ok {
			if sample, ok := t.sampleByRG[id]; ok {
				return sample, true
			}
		}
	}
	if len(t.samples) == 1 {
		return t.samples[0], true
	}
	return "", false
}

func sampleNameFromPath(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{".gz", ".bam", ".sam"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}
