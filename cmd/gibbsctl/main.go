package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "gibbsctl",
	Short: "Gibbs sampling factor-graph engine",
	Long: `gibbsctl drives a discrete factor-graph's Gibbs sampling learning and
inference loops across NUMA replicas. It does not read or write the on-disk
binary graph format: that conversion is an external collaborator's job, not
this engine's (see the orchestrator's builder/compile/run contract).`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gibbsfg.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
}

// Commands are defined in separate files:
// - runCmd in run.go

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
