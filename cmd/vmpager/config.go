package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envFlags maps environment variables to the flags they provide defaults for.
var envFlags = map[string]string{
	"VMPAGER_NUM_FRAMES":    "frames",
	"VMPAGER_PAGE_SIZE":     "page-size",
	"VMPAGER_TLB_SIZE":      "tlb-size",
	"VMPAGER_NUM_PAGES":     "pages",
	"VMPAGER_NUM_PROCESSES": "processes",
	"VMPAGER_ACCESSES":      "accesses",
	"VMPAGER_PATTERN":       "pattern",
	"VMPAGER_WRITE_RATIO":   "write-ratio",
	"VMPAGER_SEED":          "seed",
	"VMPAGER_QUANTUM":       "quantum",
	"VMPAGER_SWAP_DIR":      "swap-dir",
	"VMPAGER_MONITOR_PORT":  "monitor-port",
}

// loadEnvDefaults loads the env file, if any, into the environment, and then
// sets every flag that was not given on the command line from its
// environment variable.
func loadEnvDefaults(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	flags := cmd.Flags()
	for env, name := range envFlags {
		if flags.Lookup(name) == nil || flags.Changed(name) {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("%s=%q: %w", env, value, err)
		}
	}

	return nil
}

// A ConfigError reports a combination of settings that cannot be run.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Setting, e.Reason)
}

type runConfig struct {
	numFrames    int
	pageSize     uint64
	tlbSize      int
	numPages     uint64
	numProcesses int
	accesses     int
	pattern      string
	writeRatio   float64
	seed         uint64
	quantum      int
	swapDir      string
	mmapBytes    uint64
	trace        bool
	dumpTables   bool
	traceCSV     string
	record       bool
	recordPath   string
	monitor      bool
	monitorPort  int
	openBrowser  bool
}

func (c runConfig) validate() error {
	switch {
	case c.numFrames <= 0:
		return &ConfigError{"frames", "must be positive"}
	case c.pageSize == 0:
		return &ConfigError{"page-size", "must be positive"}
	case c.tlbSize <= 0:
		return &ConfigError{"tlb-size", "must be positive"}
	case c.numPages == 0:
		return &ConfigError{"pages", "must be positive"}
	case c.numProcesses <= 0:
		return &ConfigError{"processes", "must be positive"}
	case c.writeRatio < 0 || c.writeRatio > 1:
		return &ConfigError{"write-ratio", "must be between 0 and 1"}
	case c.quantum < 0:
		return &ConfigError{"quantum", "must not be negative"}
	}

	switch c.pattern {
	case "sequential", "random", "hotspot":
	default:
		return &ConfigError{"pattern",
			fmt.Sprintf("%q is not sequential, random or hotspot", c.pattern)}
	}

	return nil
}
