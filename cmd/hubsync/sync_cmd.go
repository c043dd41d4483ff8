package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/manifest"
	hsync "github.com/contenthub/hubsync/internal/sync"
)

const (
	directionPush = hsync.DirectionPush
	directionPull = hsync.DirectionPull
)

// scopeFlags are the selection flags shared by push, pull and status.
type scopeFlags struct {
	types            []string
	all              bool
	ignoreTimestamps bool
	manifest         string
	filter           string
	writeManifest    string
	deleteMissing    bool
}

func (f *scopeFlags) register(cmd *cobra.Command, dir hsync.Direction) {
	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringSliceVar(&f.types, "types", nil, "artifact types to sync, comma separated ("+typeNames()+")")
	flags.BoolVar(&f.all, "all", false, "sync every artifact type")
	flags.BoolVar(&f.ignoreTimestamps, "ignore-timestamps", false, "select every item, not only modified ones")
	flags.StringVar(&f.manifest, "manifest", "", "sync exactly the items listed in this manifest (json or yaml)")
	flags.StringVar(&f.filter, "filter", "", "only sync paths matching this glob, e.g. 'content/blog/**'")
	flags.StringVar(&f.writeManifest, "write-manifest", "", "record every synced item in this manifest")
	if dir == directionPull {
		flags.BoolVar(&f.deleteMissing, "delete", false, "delete unmodified local items that no longer exist remotely")
	}
}

func typeNames() string {
	var names []string
	for _, t := range artifact.AllTypes() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

// scope turns the flags into a Scope. Types default to the manifest's when a
// manifest is given without --types.
func (f *scopeFlags) scope(dir hsync.Direction) (hsync.Scope, error) {
	s := hsync.Scope{
		All:           f.all,
		Direction:     dir,
		Mode:          hsync.ModeModifiedOnly,
		PathFilter:    f.filter,
		DeleteMissing: f.deleteMissing,
		WriteManifest: f.writeManifest,
	}
	for _, name := range f.types {
		t, err := artifact.ParseType(name)
		if err != nil {
			return s, err
		}
		s.Types = append(s.Types, t)
	}

	if f.ignoreTimestamps {
		s.Mode = hsync.ModeAll
	}
	if f.manifest != "" {
		m, err := manifest.Load(f.manifest)
		if err != nil {
			return s, err
		}
		s.Mode = hsync.ModeManifest
		s.Manifest = m
		if len(s.Types) == 0 && !s.All {
			s.Types = m.Types()
		}
	}
	return s, s.Validate()
}

func newSyncCmd(dir hsync.Direction) *cobra.Command {
	var flags scopeFlags

	short := "Push local changes to the content hub"
	if dir == directionPull {
		short = "Pull remote changes into the working directory"
	}

	cmd := &cobra.Command{
		Use:   string(dir),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := flags.scope(dir)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, hsync.WithSink(logSink{}))
			if err != nil {
				return err
			}
			defer s.Close()
			scope.Concurrency = s.cfg.Concurrency

			start := time.Now()
			var res hsync.Result
			if dir == directionPush {
				res, err = s.engine.Push(cmd.Context(), scope)
			} else {
				res, err = s.engine.Pull(cmd.Context(), scope)
			}
			if err == nil || res.Total() > 0 {
				printResult(cmd, dir, res, time.Since(start))
			}
			if err != nil {
				return err
			}
			if res.HasProblems() {
				return errProblems
			}
			return nil
		},
	}
	flags.register(cmd, dir)
	return cmd
}

// logSink logs every terminal item outcome.
type logSink struct{}

func (logSink) Notify(ev hsync.Event) {
	attrs := []any{"op", ev.Direction, "type", ev.Descriptor.Type, "path", ev.Descriptor.Key(), "status", ev.State}
	switch ev.Type {
	case hsync.EventItemSynced:
		slog.Info("sync", attrs...)
	case hsync.EventItemSkipped:
		slog.Debug("sync", attrs...)
	case hsync.EventItemConflicted:
		if ev.MarkerPath != "" {
			attrs = append(attrs, "marker", ev.MarkerPath)
		}
		slog.Warn("sync", append(attrs, "error", ev.Err)...)
	default:
		slog.Error("sync", append(attrs, "error", ev.Err)...)
	}
}

func printResult(cmd *cobra.Command, dir hsync.Direction, res hsync.Result, took time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s in %s\n", cyan(dir), green("done"), took.Round(time.Millisecond))
	fmt.Fprintf(out, "  succeeded:  %d\n", res.Succeeded)
	if res.Deleted > 0 {
		fmt.Fprintf(out, "  deleted:    %d\n", res.Deleted)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, "  skipped:    %s\n", yellow(res.Skipped))
	}
	for _, line := range []struct {
		label string
		n     int
	}{
		{"conflicted", res.Conflicted},
		{"rejected", res.Rejected},
		{"failed", res.Failed},
	} {
		if line.n > 0 {
			fmt.Fprintf(out, "  %-11s %s\n", line.label+":", red(line.n))
		}
	}

	for _, d := range res.Details {
		if d.State == hsync.StateSkipped {
			continue
		}
		fmt.Fprintf(out, "  %s %s: %v\n", red(d.State), d.Descriptor.Key(), d.Err)
		if d.MarkerPath != "" {
			fmt.Fprintf(out, "    %s: %s\n", markerLabel(dir), d.MarkerPath)
		}
	}
}

// markerLabel names whose content a conflict marker holds: a push keeps the
// rejected local content, a pull the remote content it could not apply.
func markerLabel(dir hsync.Direction) string {
	if dir == directionPush {
		return "local copy"
	}
	return "remote copy"
}
