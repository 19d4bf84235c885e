// Sync and drift commands: pushing SSOT state out, detecting external edits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/syncer"
	"github.com/tangentlab/switchyard/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Regenerate every live file from the store",
	Long: `Sync is the recovery path: it rewrites every enabled resource copy and
every active provider's config files from the store, repairing external
damage to the live directories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		if err := eng.orch.SyncAll(context.Background()); err != nil {
			return err
		}
		fmt.Println("sync complete")
		return nil
	},
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Detect and resolve external changes to live files",
}

func init() {
	driftResolveCmd.Flags().StringVar(&driftResolution, "resolution", "", "keepLocal or acceptExternal")
	driftWatchCmd.Flags().DurationVar(&driftDebounce, "debounce", 500*time.Millisecond, "settle time before re-checking")

	driftCmd.AddCommand(driftDetectCmd)
	driftCmd.AddCommand(driftResolveCmd)
	driftCmd.AddCommand(driftWatchCmd)
}

var driftDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Compare live files against the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		events, err := eng.orch.DetectDrift(context.Background())
		if err != nil {
			return err
		}
		return printOutput(events, func() {
			for _, e := range events {
				fmt.Printf("%-20s %-10s %s\n", e.Type, e.App, e.Path)
			}
			if len(events) == 0 {
				fmt.Println("no drift detected")
			}
		})
	},
}

var driftResolution string

var driftResolveCmd = &cobra.Command{
	Use:   "resolve <event-id>",
	Short: "Settle a detected drift event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolution := types.Resolution(driftResolution)
		if resolution != types.ResolutionKeepLocal && resolution != types.ResolutionAcceptExternal {
			return fmt.Errorf("%w: --resolution must be %s or %s",
				types.ErrValidation, types.ResolutionKeepLocal, types.ResolutionAcceptExternal)
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()
		return eng.orch.ResolveDrift(context.Background(), args[0], resolution)
	},
}

var driftDebounce time.Duration

var driftWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live directories and report drift until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		watcher, err := syncer.NewWatcher(eng.orch, driftDebounce)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		go func() {
			for events := range watcher.Events {
				for _, e := range events {
					fmt.Printf("%-20s %-10s %s\n", e.Type, e.App, e.Path)
				}
			}
		}()

		fmt.Println("watching for drift, Ctrl-C to stop")
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
