package main

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/contenthub/hubsync/internal/artifact"
	hsync "github.com/contenthub/hubsync/internal/sync"
)

func newStatusCmd() *cobra.Command {
	var (
		types  []string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what a push and a pull would sync, without syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := scopeFlags{types: types, all: len(types) == 0, filter: filter}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			for _, dir := range []hsync.Direction{directionPush, directionPull} {
				scope, err := flags.scope(dir)
				if err != nil {
					return err
				}
				plan, err := s.engine.Plan(cmd.Context(), scope)
				if err != nil {
					return err
				}
				printPlan(cmd, plan)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "types", nil, "artifact types to inspect (default all)")
	cmd.Flags().StringVar(&filter, "filter", "", "only show paths matching this glob")
	return cmd
}

func printPlan(cmd *cobra.Command, plan *hsync.Plan) {
	out := cmd.OutOrStdout()
	if plan.Len() == 0 && len(plan.Problems) == 0 {
		fmt.Fprintf(out, "%s: %s\n", cyan(plan.Direction), green("up to date"))
		return
	}

	fmt.Fprintf(out, "%s: %d item(s)\n", cyan(plan.Direction), plan.Len())
	for _, t := range artifact.AllTypes() {
		items, ok := plan.Items[t]
		if !ok {
			continue
		}
		var size uint64
		for _, d := range items {
			size += uint64(max(d.Size, 0))
		}
		fmt.Fprintf(out, "  %s (%d, %s)\n", t, len(items), humanize.Bytes(size))

		keys := make([]string, 0, len(items))
		for _, d := range items {
			keys = append(keys, d.Key())
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "    %s\n", k)
		}
	}
	for _, p := range plan.Problems {
		fmt.Fprintf(out, "  %s %s: %v\n", red(p.State), p.Descriptor.Key(), p.Err)
	}
}
