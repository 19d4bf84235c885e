// Batch install command: install many discovered items in one pass.
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/batch"
	"github.com/tangentlab/switchyard/pkg/types"
)

var (
	batchGlobalFlag bool
	batchProject    string
	batchApps       []string
	batchKinds      []string
)

var batchInstallCmd = &cobra.Command{
	Use:   "batch-install <owner/name>",
	Short: "Install every discoverable resource of a repository",
	Long: `Batch-install discovers the repository and installs each item in turn.
Already-installed items are skipped, one item's failure does not stop the
rest, and Ctrl-C takes effect between items so no item is left half done.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchInstall,
}

func init() {
	batchInstallCmd.Flags().BoolVar(&batchGlobalFlag, "global", false, "install into the global scope (default)")
	batchInstallCmd.Flags().StringVar(&batchProject, "project", "", "install into a project root")
	batchInstallCmd.Flags().StringSliceVar(&batchApps, "app", nil, "apps to sync to (default: all)")
	batchInstallCmd.Flags().StringSliceVar(&batchKinds, "kind", nil, "limit to resource kinds")
}

func runBatchInstall(cmd *cobra.Command, args []string) error {
	owner, name, err := splitSlug(args[0])
	if err != nil {
		return err
	}
	sc, err := parseScopeFlags(batchGlobalFlag, batchProject)
	if err != nil {
		return err
	}
	apps, err := parseAppsFlag(batchApps)
	if err != nil {
		return err
	}
	kinds := map[types.ResourceKind]bool{}
	for _, arg := range batchKinds {
		kind, err := mustKind(arg)
		if err != nil {
			return err
		}
		kinds[kind] = true
	}

	eng, err := openEngine(true)
	if err != nil {
		return err
	}
	defer eng.close()

	repo, err := eng.store.GetRepository(owner, name)
	if err != nil {
		return err
	}

	discoverCtx, cancel := eng.discoveryContext()
	items, err := eng.discoveryService().Discover(discoverCtx, *repo, false)
	cancel()
	if err != nil {
		return err
	}
	if len(kinds) > 0 {
		filtered := items[:0]
		for _, item := range items {
			if kinds[item.Kind] {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	summary, err := eng.batchInstaller().Run(context.Background(), items, sc, apps,
		func(p batch.Progress) {
			fmt.Printf("[%d/%d] %s\n", p.Index, p.Total, p.Name)
		})
	if err != nil {
		return err
	}
	return printOutput(summary, func() {
		fmt.Printf("installed %d, skipped %d, failed %d\n",
			summary.Succeeded, summary.Skipped, len(summary.Failed))
		for _, f := range summary.Failed {
			fmt.Printf("  failed %s: %v\n", f.Name, f.Err)
		}
	})
}
