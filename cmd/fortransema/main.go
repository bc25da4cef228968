// Command fortransema is an inspection tool for the semantic analyzer:
// it runs analysis over built-in sample programs and prints the resulting
// symbol tables and SIR.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soypat/go-fortran-sema/loader"
	"github.com/soypat/go-fortran-sema/sema"
	"github.com/soypat/go-fortran-sema/sir"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "fortransema",
	Short: "Inspect the Fortran semantic analyzer",
}

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the built-in sample programs",
	Run: func(cmd *cobra.Command, args []string) {
		names := make([]string, 0, len(samples))
		for name := range samples {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <sample>",
	Short: "Analyze a sample program and print its SIR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tu, ok := samples[args[0]]
		if !ok {
			return fmt.Errorf("unknown sample %q, run `fortransema samples`", args[0])
		}
		log := zap.NewNop()
		if verbose {
			var err error
			log, err = zap.NewDevelopment()
			if err != nil {
				return err
			}
		}
		al := sir.NewArena()
		reg := loader.NewRegistry(al, log)
		unit, err := sema.Analyze(al, tu, nil, reg, log)
		if err != nil {
			return err
		}
		fmt.Print(sir.Pickle(unit))
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(samplesCmd, dumpCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
