package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/comsec-group/phoenix-sub000/dram"
	"github.com/comsec-group/phoenix-sub000/dsl"
	"github.com/comsec-group/phoenix-sub000/payload"
	"github.com/comsec-group/phoenix-sub000/resolve"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a hammer program into an executor payload.",
	Long: "`compile -p prog.dsl --addresses 0:10,0:12` parses a program, " +
		"resolves its loops and address expressions, and encodes the " +
		"payload, reporting how much of the instruction memory it uses.",
	Run: func(cmd *cobra.Command, args []string) {
		program, err := compileProgram(cmd)
		if err != nil {
			var capErr *payload.CapacityError
			if errors.As(err, &capErr) {
				log.Fatalf(
					"Error: payload needs %d bytes but the executor has %d.",
					capErr.RequiredBytes, capErr.AvailableBytes)
			}

			log.Fatalf("Error: %v", err)
		}

		capacity, _ := cmd.Flags().GetInt("capacity")
		listing, _ := cmd.Flags().GetBool("listing")

		if listing {
			for pc, inst := range program.Instructions {
				fmt.Printf("%4d: %s\n", pc, inst)
			}
		}

		fmt.Printf("%d instructions, %d/%d bytes\n",
			len(program.Instructions), len(program.Bytes()), capacity)
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)

	addCompileFlags(compileCmd)
	compileCmd.Flags().Bool("listing", false,
		"Print the encoded instructions")
}

// addCompileFlags registers the flags of the parse/resolve/assemble path.
// The run command compiles through the same path and shares them.
func addCompileFlags(c *cobra.Command) {
	c.Flags().StringP("program", "p", "", "Program file to compile")
	c.Flags().String("addresses", "",
		"Aggressor rows as bank:row pairs, bound to the addresses array")
	c.Flags().String("decoys", "",
		"Decoy rows as bank:row pairs, bound to the decoys array")
	c.Flags().Int("capacity", 1024,
		"Instruction-memory size of the executor in bytes")

	_ = c.MarkFlagRequired("program")
}

// compileProgram runs the parse, resolve, and assemble steps configured by
// the command flags. The run command goes through the same path.
func compileProgram(cmd *cobra.Command) (payload.Program, error) {
	path, _ := cmd.Flags().GetString("program")
	src, err := os.ReadFile(path)
	if err != nil {
		return payload.Program{}, err
	}

	commands, err := dsl.Parse(string(src))
	if err != nil {
		return payload.Program{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	lookup, err := lookupFromFlags(cmd)
	if err != nil {
		return payload.Program{}, err
	}

	ops, err := resolve.Resolve(commands, lookup)
	if err != nil {
		return payload.Program{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	mapping, err := mappingFromFlags(cmd)
	if err != nil {
		return payload.Program{}, err
	}

	capacity, _ := cmd.Flags().GetInt("capacity")

	return payload.MakeBuilder().
		WithGeometry(dram.MakeGeometry()).
		WithTimings(dram.MakeTimings()).
		WithRowMapping(mapping).
		WithCapacity(capacity).
		Build().
		Assemble(ops)
}

func lookupFromFlags(cmd *cobra.Command) (dsl.AddressLookup, error) {
	lookup := dsl.AddressLookup{}

	for _, name := range []string{"addresses", "decoys"} {
		spec, _ := cmd.Flags().GetString(name)
		addrs, err := parseAddressList(spec)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}

		if len(addrs) > 0 {
			lookup[name] = addrs
		}
	}

	return lookup, nil
}
