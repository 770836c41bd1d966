// Package cmd provides the command-line interface of the phoenix experiment
// core. It compiles hammer programs and drives experiment campaigns.
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/comsec-group/phoenix-sub000/dram"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "phoenix",
	Short: "Phoenix compiles DRAM command programs and runs " +
		"refresh-synchronized hammering campaigns.",
	Long: `Phoenix compiles DRAM command programs into payloads for the ` +
		`FPGA command executor and runs refresh-synchronized hammering ` +
		`campaigns against a memory controller.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env")
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr,
					"warning: cannot load %s: %v\n", envFile, err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", ".env",
		"Env file with run settings, loaded if present")
	rootCmd.PersistentFlags().String("vendor", envOr("PHOENIX_VENDOR", "generic"),
		"Row-mapping profile of the module under test (generic, typeA, typeB)")
}

// envOr returns the value of an environment variable, or the default when it
// is unset. Env files loaded by the root command feed into this.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return def
}

// mappingFromFlags resolves the --vendor flag into a row mapping.
func mappingFromFlags(cmd *cobra.Command) (dram.RowMapping, error) {
	vendor, _ := cmd.Flags().GetString("vendor")
	return dram.MappingForVendor(dram.Vendor(vendor))
}

// parseAddressList parses a comma-separated list of bank:row pairs, e.g.
// "0:10,0:12".
func parseAddressList(s string) ([]dram.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var addrs []dram.Address
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%q is not a bank:row pair", part)
		}

		bank, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("bank in %q: %w", part, err)
		}

		row, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("row in %q: %w", part, err)
		}

		addrs = append(addrs, dram.Address{Bank: bank, Row: row})
	}

	return addrs, nil
}
