package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/config"
	"github.com/contenthub/hubsync/internal/hubsdk"
	"github.com/contenthub/hubsync/internal/index"
	"github.com/contenthub/hubsync/internal/local"
	hsync "github.com/contenthub/hubsync/internal/sync"
	"github.com/contenthub/hubsync/internal/workspace"
)

// session is everything one push, pull or status invocation works with. It
// holds the workspace lock until Close.
type session struct {
	cfg    *config.Config
	ws     *workspace.Workspace
	index  *index.Index
	engine *hsync.Engine

	closers []func()
}

func openSession(cmd *cobra.Command, opts ...hsync.Option) (s *session, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.NewWorkspace(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	if err := ws.Setup(); err != nil {
		return nil, err
	}

	s = &session{cfg: cfg, ws: ws}
	s.closers = append(s.closers, func() {
		if err := ws.Unlock(); err != nil {
			slog.Warn("workspace", "op", "unlock", "error", err)
		}
	})
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	verbose, _ := cmd.Flags().GetBool("verbose")
	closeLog, err := setupLogging(ws, verbose)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closeLog)
	slog.Debug("config", "path", cfg.Path, "config", cfg.String())

	s.index, err = index.Load(ws.IndexPath)
	if err != nil {
		return nil, err
	}

	wd, err := local.Open(ws.Root)
	if err != nil {
		return nil, err
	}

	sdk, err := hubsdk.New(&hubsdk.Config{
		BaseURL:   cfg.ServerURL,
		Tenant:    cfg.Tenant,
		Token:     cfg.Token,
		RateLimit: cfg.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("hub client: %w", err)
	}

	registry := artifact.NewRegistry()
	for _, t := range artifact.AllTypes() {
		if err := registry.Register(t, wd.Accessor(t), sdk.Accessor(t)); err != nil {
			return nil, err
		}
	}

	s.engine = hsync.NewEngine(registry, s.index, opts...)
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
