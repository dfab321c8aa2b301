package main

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/nvpkit/pkg/nvp"
)

var createSize datasize.ByteSize

func init() {
	create := newCreateCmd()
	create.Flags().Var(newSizeValue(4*datasize.KB, &createSize), "size", "Region size")
	rootCmd.AddCommand(create)
	rootCmd.AddCommand(newDestroyCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <region-id>",
		Short: "Create a raw region",
		Long: `The create command creates a zero-filled region of exactly --size
bytes without formatting it as a heap.

Example:
  nvpctl create 10 --size 64KB`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
	}
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	r, err := d.CreateRegion(id, int(createSize.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create region %d: %w", id, err)
	}
	if jsonOut {
		return printJSON(toHandleJSON(r.Handle()))
	}
	printInfo("Created region %d (%s)\n", id, humanize.IBytes(uint64(r.Size)))
	return nil
}

func newDestroyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy <region-id>",
		Short: "Permanently remove a region",
		Long: `The destroy command removes a region and its storage. Every handle
into the region, including chunks of a heap stored in it, becomes invalid.

Example:
  nvpctl destroy 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(args)
		},
	}
	return cmd
}

func runDestroy(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
	}
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	if err := d.ReleaseRegion(nvp.RegionHandle{ID: id}); err != nil {
		return fmt.Errorf("failed to destroy region %d: %w", id, err)
	}
	printInfo("Destroyed region %d\n", id)
	return nil
}
