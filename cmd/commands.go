package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	Long: `Run one sync pass against the configured remote and exit.

Available subcommands:
  data  - mirror users and measurement CSVs into data_dir
  icons - mirror crop icons into assets_dir`,
}

var syncDataCmd = &cobra.Command{
	Use:   "data",
	Short: "Sync users and measurement CSVs",
	RunE:  runSyncData,
}

var syncIconsCmd = &cobra.Command{
	Use:   "icons",
	Short: "Sync crop icons",
	RunE:  runSyncIcons,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the remote folder tree",
	RunE:  runInspect,
}

func init() {
	syncCmd.AddCommand(syncDataCmd, syncIconsCmd)
}

// errSyncFailed marks a pass that completed with ok=false.
type errSyncFailed struct{ msg string }

func (e errSyncFailed) Error() string { return e.msg }

func runSyncData(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	ok, msg := svc.SyncData(ctx)
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	if !ok {
		return errSyncFailed{msg: "data sync failed"}
	}
	return nil
}

func runSyncIcons(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if !svc.SyncIcons(ctx) {
		fmt.Fprintln(cmd.OutOrStdout(), "Icon sync failed.")
		return errSyncFailed{msg: "icon sync failed"}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Icon sync completed.")
	return nil
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()
	return svc.Inspect(ctx, cmd.OutOrStdout())
}
