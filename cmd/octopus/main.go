// octopus serves region- and sample-scoped alignment reads out of large
// collections of BAM/SAM files while keeping a bounded number of them open.
package main

import "github.com/jbedo/octopus/cmd/octopus/cmd"

func main() {
	cmd.Run()
}
