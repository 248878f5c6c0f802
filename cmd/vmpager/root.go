package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmpager",
	Short: "vmpager runs workloads on a simulated demand-paged machine.",
	Long: `vmpager runs workloads on a simulated demand-paged machine with a ` +
		`software-managed TLB, an inverted page table, and LRU replacement. ` +
		`Defaults can be set in a .env file with VMPAGER_* variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File to load VMPAGER_* defaults from, if it exists.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Registered exit handlers run before the program ends.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
