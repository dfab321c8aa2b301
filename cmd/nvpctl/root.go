package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/nvpkit/pkg/nvp"
)

var (
	// Global flags
	regionDir string
	verbose   bool
	quiet     bool
	jsonOut   bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "nvpctl",
	Short: "Inspect and edit persistent-memory regions and heaps",
	Long: `nvpctl works on a directory holding one file per region. It can
format heaps, allocate and free chunks, print chunk contents and show
allocation maps.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&regionDir, "dir", "d", ".", "Region directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Library log level (debug, info, warn, error)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the library logger from --log-level and --verbose.
// Without either flag library logs are discarded.
func newLogger() (*slog.Logger, error) {
	if logLevel == "" && !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}
	level := slog.LevelDebug
	if logLevel != "" {
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// openDirectory opens the region directory named by --dir.
func openDirectory() (*nvp.Directory, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	printVerbose("Opening region directory: %s\n", regionDir)
	d, err := nvp.OpenDir(regionDir, nvp.Options{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", regionDir, err)
	}
	return d, nil
}

// closeDirectory closes d and reports the first error of the command or the close.
func closeDirectory(d *nvp.Directory, err *error) {
	if cerr := d.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close %s: %w", regionDir, cerr)
	}
}

func parseRegionID(s string) (nvp.RegionID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid region id %q", s)
	}
	return nvp.RegionID(n), nil
}

func parseUint32(what, s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint32(n), nil
}

// parseChunk builds a chunk handle from <heap> <offset> <size> arguments.
func parseChunk(args []string) (nvp.ChunkHandle, error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return nvp.ChunkHandle{}, err
	}
	off, err := parseUint32("offset", args[1])
	if err != nil {
		return nvp.ChunkHandle{}, err
	}
	size, err := parseUint32("size", args[2])
	if err != nil {
		return nvp.ChunkHandle{}, err
	}
	return nvp.ChunkHandle{Heap: id, Offset: off, Size: size}, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// handleJSON is the JSON form of a handle.
type handleJSON struct {
	Kind   string `json:"kind"`
	ID     uint32 `json:"id"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

func toHandleJSON(h nvp.Handle) handleJSON {
	return handleJSON{Kind: h.Kind.String(), ID: uint32(h.ID), Offset: h.Offset, Size: h.Size}
}
