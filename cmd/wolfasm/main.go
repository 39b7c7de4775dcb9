// Command wolfasm assembles a Wolf ASM source file into an executable.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/wolf-asm/wolf/pkg/asm"
	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/span"
)

func main() {
	log.SetFlags(0)

	var output string

	root := &cobra.Command{
		Use:   "wolfasm <source-file>",
		Short: "Assemble a Wolf ASM source file into an executable",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(args[0], output)
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "a.wexe", "path to write the assembled executable")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(path, output string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}

	executable, sink := asm.Assemble(path, data)
	if sink.HasErrors() {
		printDiagnostics(path, data, sink)
		os.Exit(1)
	}

	fp, err := os.Create(output)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()
	if err := executable.Write(fp); err != nil {
		log.Fatal(err)
	}
}

// printDiagnostics renders each diagnostic as `path:line:col: error:
// <message>`. Colored rendering and source-line quoting are left to
// editor/CI tooling outside this core.
func printDiagnostics(path string, data []byte, sink *diag.Sink) {
	src := span.NewSource(path, data)
	for _, d := range sink.Diagnostics() {
		line, col := src.LineCol(d.Span.Start)
		fmt.Fprintf(os.Stderr, "%s:%d:%d: error: %s\n", path, line, col, d.Message)
	}
}
