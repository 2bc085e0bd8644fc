package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/jbedo/octopus/extract"
	"github.com/jbedo/octopus/interval"
	"github.com/jbedo/octopus/readfilter"
)

type extractFlags struct {
	catalog     catalogFlags
	regions     stringsFlag
	regionsFile string
	skipRegions stringsFlag
	samples     stringsFlag
	samplesFile string
	output      string
	parallelism int

	minMapQ         int
	minReadLen      int
	maxReadLen      int
	noDuplicates    bool
	noQCFailed      bool
	noSecondary     bool
	noSupplementary bool
	maskSoftClips   bool
}

func parseRegionFlags(values stringsFlag) ([]interval.Region, error) {
	var regions []interval.Region
	for _, s := range values {
		r, err := interval.ParseRegion(s)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (f *extractFlags) config() (extract.Config, error) {
	var config extract.Config
	regions, err := parseRegionFlags(f.regions)
	if err != nil {
		return config, err
	}
	if f.regionsFile != "" {
		listed, err := interval.NewRegionsFromPath(f.regionsFile)
		if err != nil {
			return config, err
		}
		regions = append(regions, listed...)
	}
	if len(regions) == 0 {
		return config, fmt.Errorf("no target regions; pass -regions or -regions-file")
	}
	if len(f.skipRegions) > 0 {
		skips, err := parseRegionFlags(f.skipRegions)
		if err != nil {
			return config, err
		}
		regions = interval.SubtractRegions(regions, skips)
	}
	config.Regions = regions

	if config.Samples, err = mergeList(f.samples, f.samplesFile); err != nil {
		return config, err
	}

	if f.noDuplicates {
		config.Filters = append(config.Filters, readfilter.DropDuplicates)
	}
	if f.noQCFailed {
		config.Filters = append(config.Filters, readfilter.DropQCFailed)
	}
	if f.noSecondary {
		config.Filters = append(config.Filters, readfilter.DropSecondary)
	}
	if f.noSupplementary {
		config.Filters = append(config.Filters, readfilter.DropSupplementary)
	}
	if f.minMapQ > 0 {
		config.Filters = append(config.Filters, readfilter.MinMapQ(byte(f.minMapQ)))
	}
	if f.minReadLen > 0 {
		config.Filters = append(config.Filters, readfilter.MinReadLength(f.minReadLen))
	}
	if f.maxReadLen > 0 {
		config.Filters = append(config.Filters, readfilter.MaxReadLength(f.maxReadLen))
	}
	if f.maskSoftClips {
		config.Transforms = append(config.Transforms, readfilter.MaskSoftClips)
	}
	config.Parallelism = f.parallelism
	return config, nil
}

func runExtract(flags *extractFlags) (err error) {
	config, err := flags.config()
	if err != nil {
		return err
	}
	mgr, err := flags.catalog.manager()
	if err != nil {
		return err
	}
	defer mgr.Close() // nolint: errcheck

	out := io.Writer(os.Stdout)
	if flags.output != "" {
		ctx := vcontext.Background()
		var dst file.File
		if dst, err = file.Create(ctx, flags.output); err != nil {
			return err
		}
		defer file.CloseAndReport(ctx, dst, &err)
		out = dst.Writer(ctx)
	}
	report, err := extract.Reads(mgr, out, config)
	if err != nil {
		return err
	}
	samples := make([]string, 0, len(report.PerSample))
	for sample := range report.PerSample {
		samples = append(samples, sample)
	}
	sort.Strings(samples)
	for _, sample := range samples {
		log.Printf("%s: %d read(s)", sample, report.PerSample[sample])
	}
	return nil
}
