package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/internal/network"
	"github.com/gravitas-games/sortsys/pkg/models"
)

// NewListingCommand creates the listing command.
func NewListingCommand(rootOpts *RootOptions) *cobra.Command {
	var unpacking string

	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Show the merged inventory listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := rootOpts.client().Listing(cmd.Context(), unpacking)
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(listing, func(tw *tabwriter.Writer) {
				row(tw, "ITEM", "COUNT", "STACK", "HASH", "FULL BOX")
				for _, it := range listing {
					full := "-"
					if it.FullShulkerStackableHash != nil {
						full = it.FullShulkerStackableHash.String()
					}
					row(tw, it.ItemID, it.Count, it.StackSize, it.StackableHash, full)
				}
			})
		},
	}

	cmd.Flags().StringVar(&unpacking, "unpacking", "", "container unpacking (FullListing|UnnamedOnly|None)")
	return cmd
}

// NewHoldCommand creates the hold command and its request kinds.
func NewHoldCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hold",
		Short: "Claim slots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "empty",
		Short: "Claim one empty slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHold(rootOpts, cmd, holds.EmptySlot{})
		},
	})

	var total uint64
	itemCmd := &cobra.Command{
		Use:   "item <stackable-hash>",
		Short: "Claim stacks of one item kind until total is reached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := item.ParseHash(args[0])
			if err != nil {
				return err
			}
			return runHold(rootOpts, cmd, holds.ItemMatch{Criteria: holds.StackableHashCriteria{StackableHash: hash}, Total: total})
		},
	}
	itemCmd.Flags().Uint64Var(&total, "total", 1, "number of items to cover")
	cmd.AddCommand(itemCmd)

	var exprTotal uint64
	exprCmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "Claim stacks matching an expression, e.g. 'item_id == 5 && count >= 32'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := holds.CompileExpression(args[0])
			if err != nil {
				return err
			}
			return runHold(rootOpts, cmd, holds.ItemMatch{Criteria: criteria, Total: exprTotal})
		},
	}
	exprCmd.Flags().Uint64Var(&exprTotal, "total", 1, "number of items to cover")
	cmd.AddCommand(exprCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "slot <dim> <x> <y> <z> <slot>",
		Short: "Claim one specific slot",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseSlotLocation(args)
			if err != nil {
				return err
			}
			return runHold(rootOpts, cmd, req)
		},
	})

	return cmd
}

func parseSlotLocation(args []string) (holds.SlotLocation, error) {
	dim, err := models.ParseDimension(args[0])
	if err != nil {
		return holds.SlotLocation{}, err
	}

	var coords [3]int32
	for i := range coords {
		v, err := strconv.ParseInt(args[i+1], 10, 32)
		if err != nil {
			return holds.SlotLocation{}, fmt.Errorf("invalid coordinate %q: %w", args[i+1], err)
		}
		coords[i] = int32(v)
	}

	slot, err := strconv.ParseUint(args[4], 10, 32)
	if err != nil {
		return holds.SlotLocation{}, fmt.Errorf("invalid slot %q: %w", args[4], err)
	}

	pos := models.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
	return holds.SlotLocation{
		Location: models.Location{Vec3: pos, Dim: dim},
		Slot:     uint32(slot),
		OpenFrom: pos,
	}, nil
}

func runHold(opts *RootOptions, cmd *cobra.Command, req holds.Request) error {
	results, err := opts.client().RequestHolds(cmd.Context(), req)
	if err != nil {
		return err
	}
	if len(results) != 1 {
		return fmt.Errorf("expected 1 result, got %d", len(results))
	}
	result := results[0]

	if err := newPrinter(opts, cmd.OutOrStdout()).print(result, func(tw *tabwriter.Writer) {
		if result.Error != nil {
			row(tw, "ERROR", *result.Error)
			return
		}
		row(tw, "ID", "LOCATION", "SLOT", "OPEN FROM")
		for _, h := range result.Holds.Holds {
			row(tw, h.ID, h.Location, h.Slot, h.OpenFrom)
		}
	}); err != nil {
		return err
	}

	if result.Error != nil {
		return fmt.Errorf("hold request failed: %s", *result.Error)
	}
	return nil
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "release <hold-id>...",
		Short: "Release holds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			released, err := rootOpts.client().ReleaseHolds(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(released, func(tw *tabwriter.Writer) {
				for _, id := range released.Released {
					row(tw, id, "released")
				}
				for _, id := range released.Unknown {
					row(tw, id, "unknown")
				}
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show operator statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := rootOpts.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(stats, func(tw *tabwriter.Writer) {
				row(tw, "inventories", stats.InventoriesInMem)
				row(tw, "total slots", stats.TotalSlots)
				row(tw, "free slots", stats.FreeSlots)
				row(tw, "holds", stats.CurrentHolds)
				row(tw, "agents", stats.AgentsConnected)
			})
		},
	}
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the item catalog the operator publishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := rootOpts.client().Items(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(entries, func(tw *tabwriter.Writer) {
				row(tw, "ID", "KEY", "NAME", "STACK")
				for _, e := range entries {
					row(tw, e.RawID, e.Key, e.DisplayName, e.StackSize())
				}
			})
		},
	}
}

// NewScanCommand creates the scan command, which uploads a scan report from a file.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <report.json>",
		Short: "Upload an inventory scan report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read scan report: %w", err)
			}
			var scan network.InventoryScannedPayload
			if err := json.Unmarshal(data, &scan); err != nil {
				return fmt.Errorf("failed to parse scan report: %w", err)
			}

			ack, err := rootOpts.client().ReportScan(cmd.Context(), &scan)
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(ack, func(tw *tabwriter.Writer) {
				row(tw, ack.Location, ack.Slots, "slots stored")
			})
		},
	}
}
