package cmd

import (
	"fmt"
	"io"
)

func runSamples(flags *catalogFlags, w io.Writer) error {
	mgr, err := flags.manager()
	if err != nil {
		return err
	}
	defer mgr.Close() // nolint: errcheck
	for _, sample := range mgr.Samples() {
		if _, err := fmt.Fprintln(w, sample); err != nil {
			return err
		}
	}
	return nil
}
