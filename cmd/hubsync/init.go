package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contenthub/hubsync/internal/config"
	"github.com/contenthub/hubsync/internal/utils"
	"github.com/contenthub/hubsync/internal/workspace"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the hubsync config into the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ws, err := workspace.NewWorkspace(cfg.WorkDir)
			if err != nil {
				return err
			}
			if utils.FileExists(ws.ConfigPath) && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", ws.ConfigPath)
			}
			if err := ws.Setup(); err != nil {
				return err
			}
			defer ws.Unlock()

			if err := cfg.Save(ws.ConfigPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "hubsync initialized")
			fmt.Fprintf(out, "Config Path: %s\n", green(ws.ConfigPath))
			fmt.Fprintf(out, "Work Dir:    %s\n", cyan(cfg.WorkDir))
			fmt.Fprintf(out, "Server:      %s\n", cyan(cfg.ServerURL))
			fmt.Fprintf(out, "Tenant:      %s\n", cyan(cfg.Tenant))
			if cfg.Token == "" {
				fmt.Fprintf(out, "%s: %s is not set\n", yellow("WARN"), config.EnvToken)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
