package cmd

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/jbedo/octopus/readmanager"
	"github.com/klauspost/compress/gzip"
)

// stringsFlag collects the values of a repeatable flag.
type stringsFlag []string

func (f *stringsFlag) String() string { return strings.Join(*f, ",") }

func (f *stringsFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// catalogFlags are shared by every subcommand that opens a read catalog.
type catalogFlags struct {
	reads     stringsFlag
	readsFile string
	maxOpen   int
}

func (c *catalogFlags) register(fs *flag.FlagSet) {
	fs.Var(&c.reads, "reads", "Input BAM/SAM pathname. May be repeated.")
	fs.StringVar(&c.readsFile, "reads-file", "", "File listing one input pathname per line. '#' starts a comment; a .gz suffix is decompressed.")
	fs.IntVar(&c.maxOpen, "max-open-files", 200, "Maximum number of read files held open at any time.")
}

func (c *catalogFlags) paths() ([]string, error) {
	paths := append([]string(nil), c.reads...)
	if c.readsFile != "" {
		listed, err := loadList(c.readsFile)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input read files; pass -reads or -reads-file")
	}
	return paths, nil
}

func (c *catalogFlags) manager() (*readmanager.Manager, error) {
	paths, err := c.paths()
	if err != nil {
		return nil, err
	}
	return readmanager.NewFromPaths(paths, readmanager.Options{MaxOpenSources: c.maxOpen})
}

// loadList reads one item per line, skipping blank lines and '#' comments.
func loadList(path string) ([]string, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		reader = gz
	}
	var items []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// mergeList combines a repeated flag with an optional list file.
func mergeList(values stringsFlag, listPath string) ([]string, error) {
	out := append([]string(nil), values...)
	if listPath != "" {
		listed, err := loadList(listPath)
		if err != nil {
			return nil, err
		}
		out = append(out, listed...)
	}
	return out, nil
}
