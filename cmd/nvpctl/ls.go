package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/nvpkit/internal/format"
	"github.com/joshuapare/nvpkit/pkg/nvp"
)

func init() {
	rootCmd.AddCommand(newLsCmd())
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List regions in the directory",
		Long: `The ls command lists every region with its size and whether it holds
a valid heap. Regions locked by another process are shown as busy.

Example:
  nvpctl ls --dir ./regions
  nvpctl ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs()
		},
	}
	return cmd
}

type regionEntry struct {
	ID   uint32 `json:"id"`
	Size int    `json:"size"`
	Kind string `json:"kind"` // heap, raw, busy
}

func runLs() (err error) {
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	lister, ok := d.Provider().(nvp.Lister)
	if !ok {
		return fmt.Errorf("provider cannot list regions")
	}
	ids, err := lister.List()
	if err != nil {
		return err
	}

	entries := make([]regionEntry, 0, len(ids))
	for _, id := range ids {
		e, err := describeRegion(d, id)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	if jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		printInfo("No regions in %s\n", regionDir)
		return nil
	}
	printInfo("%-10s %-10s %s\n", "ID", "SIZE", "KIND")
	for _, e := range entries {
		printInfo("%-10d %-10s %s\n", e.ID, humanize.IBytes(uint64(e.Size)), e.Kind)
	}
	return nil
}

func describeRegion(d *nvp.Directory, id nvp.RegionID) (regionEntry, error) {
	e := regionEntry{ID: uint32(id)}
	size, _, err := d.Provider().Exists(id)
	if err != nil {
		return e, err
	}
	e.Size = size

	b, err := d.Resolve(nvp.RegionHandle{ID: id}.Handle())
	switch {
	case errors.Is(err, nvp.ErrRegionBusy):
		e.Kind = "busy"
		return e, nil
	case err != nil:
		return e, err
	}
	e.Kind = "raw"
	if hdr, err := format.ParseHeader(b); err == nil && hdr.ValidateSanity(uint32(id), len(b)) == nil {
		e.Kind = "heap"
	}
	return e, nil
}
