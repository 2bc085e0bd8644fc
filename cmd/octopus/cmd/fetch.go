package cmd

import (
	"bufio"
	"fmt"
	"io"

	"github.com/grailbio/hts/sam"
	"github.com/jbedo/octopus/interval"
	"github.com/jbedo/octopus/readmanager"
)

type fetchFlags struct {
	catalog catalogFlags
	samples stringsFlag
	region  string
	header  bool
}

func runFetch(flags *fetchFlags, w io.Writer) error {
	if flags.region == "" {
		return fmt.Errorf("no region; pass -region")
	}
	region, err := interval.ParseRegion(flags.region)
	if err != nil {
		return err
	}
	mgr, err := flags.catalog.manager()
	if err != nil {
		return err
	}
	defer mgr.Close() // nolint: errcheck

	samples := []string(flags.samples)
	if len(samples) == 0 {
		samples = mgr.Samples()
	}
	bw := bufio.NewWriter(w)
	if flags.header {
		header, err := catalogHeader(mgr)
		if err != nil {
			return err
		}
		text, err := header.MarshalText()
		if err != nil {
			return err
		}
		if _, err := bw.Write(text); err != nil {
			return err
		}
	}
	perSample, err := mgr.FetchSamples(samples, region)
	if err != nil {
		return err
	}
	for _, sample := range samples {
		for _, rec := range perSample[sample] {
			text, err := rec.MarshalText()
			if err != nil {
				return err
			}
			if _, err := bw.Write(text); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
			sam.PutInFreePool(rec)
		}
	}
	return bw.Flush()
}

// catalogHeader builds a header carrying the catalog's combined reference
// dictionary.
func catalogHeader(mgr *readmanager.Manager) (*sam.Header, error) {
	infos := mgr.Refs()
	refs := make([]*sam.Reference, 0, len(infos))
	for _, info := range infos {
		ref, err := sam.NewReference(info.Name, "", "", info.Length, nil, nil)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return sam.NewHeader(nil, refs)
}
