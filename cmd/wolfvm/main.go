// Command wolfvm loads and runs a Wolf ASM executable.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolf-asm/wolf/pkg/exe"
	"github.com/wolf-asm/wolf/pkg/vm"
)

// defaultMemory is the flat address space given to a run when the
// caller doesn't ask for a specific size.
const defaultMemory = 4 * 1024 * 1024

func main() {
	log.SetFlags(0)

	var (
		debug   bool
		verbose bool
		memory  uint64
	)

	root := &cobra.Command{
		Use:   "wolfvm <executable-file>",
		Short: "Run a Wolf ASM executable",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			run(args[0], memory, debug, verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "pause before each instruction")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log machine state and disassembly before each instruction")
	root.PersistentFlags().Uint64VarP(&memory, "memory", "m", defaultMemory, "bytes of flat memory to give the machine")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(path string, memory uint64, debug, verbose bool) {
	fp, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	executable, err := exe.Read(fp)
	if err != nil {
		log.Fatal(err)
	}

	machine := vm.New(memory)
	if err := machine.Load(executable); err != nil {
		log.Fatal(err)
	}

	for {
		pc := machine.PC
		if verbose || debug {
			word, rerr := machine.Mem.ReadU64(pc)
			if rerr == nil {
				log.Printf("vm: pc=0x%x sp=0x%x %s\n", pc, machine.Reg.SP, vm.Disassemble(word))
			}
		}
		if debug {
			log.Printf("vm: paused...")
			fmt.Scanln()
		}

		status, err := machine.Step()
		if err != nil {
			var trap vm.TrapError
			if errors.As(err, &trap) {
				log.Fatal(capitalize(trap.Error()))
			}
			log.Fatal(err)
		}
		if status == vm.Quit {
			return
		}
	}
}

// capitalize renders a trap's message the way a user expects to read
// it on a terminal; the error value itself stays lowercase per Go
// convention since it may be wrapped by other callers.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
