package cmd

import (
	"fmt"
	"log"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"
)

func newCmdSamples() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "samples",
		Short: "List the samples carried by a read catalog",
	}
	flags := &catalogFlags{}
	flags.register(&cmd.Flags)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("samples takes no positional arguments, but got %v", argv)
		}
		return runSamples(flags, env.Stdout)
	})
	return cmd
}

func newCmdFetch() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "fetch",
		Short: "Print the reads overlapping a region as SAM text",
	}
	flags := &fetchFlags{}
	flags.catalog.register(&cmd.Flags)
	cmd.Flags.StringVar(&flags.region, "region", "", "Region to fetch. Format as <contig>:<1-based first pos>-<last pos>, <contig>:<1-based pos>, or just <contig>.")
	cmd.Flags.Var(&flags.samples, "samples", "Restrict output to this sample. May be repeated; default is every sample.")
	cmd.Flags.BoolVar(&flags.header, "header", false, "Print a SAM header carrying the combined reference dictionary first.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("fetch takes no positional arguments, but got %v", argv)
		}
		return runFetch(flags, env.Stdout)
	})
	return cmd
}

func newCmdExtract() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "extract",
		Short: `Copy region- and sample-scoped reads into a new BAM file.
Overlapping target regions are allowed; each read is written once.`,
	}
	flags := &extractFlags{}
	flags.catalog.register(&cmd.Flags)
	cmd.Flags.Var(&flags.regions, "regions", "Target region. May be repeated.")
	cmd.Flags.StringVar(&flags.regionsFile, "regions-file", "", "File of target regions, one per line: region strings or 3+ column BED lines.")
	cmd.Flags.Var(&flags.skipRegions, "skip-regions", "Region to subtract from the targets. May be repeated.")
	cmd.Flags.Var(&flags.samples, "samples", "Restrict output to this sample. May be repeated; default is every sample.")
	cmd.Flags.StringVar(&flags.samplesFile, "samples-file", "", "File listing one sample per line.")
	cmd.Flags.StringVar(&flags.output, "output", "", "Output BAM pathname. Empty writes to stdout.")
	cmd.Flags.IntVar(&flags.parallelism, "parallelism", 0, "Maximum number of simultaneous region jobs; 0 = runtime.NumCPU()")
	cmd.Flags.IntVar(&flags.minMapQ, "min-mapping-quality", 0, "Reads with MAPQ below this value are dropped.")
	cmd.Flags.IntVar(&flags.minReadLen, "min-read-length", 0, "Reads with sequences shorter than this are dropped.")
	cmd.Flags.IntVar(&flags.maxReadLen, "max-read-length", 0, "Reads with sequences longer than this are dropped.")
	cmd.Flags.BoolVar(&flags.noDuplicates, "no-duplicates", false, "Drop reads flagged as PCR or optical duplicates.")
	cmd.Flags.BoolVar(&flags.noQCFailed, "no-qc-failed", false, "Drop reads failing platform quality checks.")
	cmd.Flags.BoolVar(&flags.noSecondary, "no-secondary", false, "Drop secondary alignments.")
	cmd.Flags.BoolVar(&flags.noSupplementary, "no-supplementary", false, "Drop supplementary alignments.")
	cmd.Flags.BoolVar(&flags.maskSoftClips, "mask-soft-clips", false, "Zero the base qualities of soft-clipped read ends.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("extract takes no positional arguments, but got %v", argv)
		}
		return runExtract(flags)
	})
	return cmd
}

func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "octopus",
			Short:    "Serve region-scoped alignment reads from a bounded set of open files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdSamples(),
				newCmdFetch(),
				newCmdExtract(),
			},
		})
}
