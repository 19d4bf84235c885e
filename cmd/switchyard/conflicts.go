// Conflict commands: same resource identity from different repositories.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/conflict"
	"github.com/tangentlab/switchyard/pkg/types"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Detect and resolve cross-repository resource conflicts",
}

var conflictsDiscoverable bool

func init() {
	conflictsDetectCmd.Flags().BoolVar(&conflictsDiscoverable, "discoverable", false,
		"scan enabled repositories' listings instead of installed resources")

	conflictsCmd.AddCommand(conflictsDetectCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
}

var conflictsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List resources provided by more than one repository",
	Long: `Detect scans installed resources for identities fed by multiple
repositories. With --discoverable it scans the enabled repositories'
listings instead, flagging identities a batch-install would silently
overwrite across repositories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(false)
		if err != nil {
			return err
		}
		defer eng.close()

		var groups []conflict.Group
		if conflictsDiscoverable {
			if groups, err = detectDiscoverable(eng); err != nil {
				return err
			}
		} else {
			resources, err := eng.store.ListResources()
			if err != nil {
				return err
			}
			groups = conflict.Detect(resources)
		}
		return printOutput(groups, func() {
			for _, g := range groups {
				fmt.Printf("%-8s %-24s %s\n", g.Identity.Kind, g.Identity.ID(), strings.Join(g.Repos, ", "))
			}
			if len(groups) == 0 {
				fmt.Println("no conflicts")
			}
		})
	},
}

// detectDiscoverable pools the enabled repositories' listings and groups
// them by identity. Listings come through the discovery cache, so a fresh
// store hits the network once per repository.
func detectDiscoverable(eng *engine) ([]conflict.Group, error) {
	repos, err := eng.store.ListRepositories()
	if err != nil {
		return nil, err
	}
	svc := eng.discoveryService()
	var items []types.DiscoverableItem
	for _, repo := range repos {
		if !repo.Enabled {
			continue
		}
		ctx, cancel := eng.discoveryContext()
		listed, err := svc.Discover(ctx, repo, false)
		cancel()
		if err != nil {
			logger.Error("discovery failed", "repo", repo.Key(), "error", err)
			continue
		}
		items = append(items, listed...)
	}
	return conflict.DetectDiscoverable(items), nil
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <kind> <id> <owner/name@branch>",
	Short: "Keep one repository's copy and uninstall the rest",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := mustKind(args[0])
		if err != nil {
			return err
		}
		id := types.ParseIdentity(kind, args[1])

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		resources, err := eng.store.ListResources()
		if err != nil {
			return err
		}
		for _, g := range conflict.Detect(resources) {
			if g.Identity != id {
				continue
			}
			if err := conflict.Resolve(context.Background(), eng.scope, g, args[2]); err != nil {
				return err
			}
			fmt.Println("resolved", id.ID(), "keeping", args[2])
			return nil
		}
		return fmt.Errorf("%w: no conflict recorded for %s", types.ErrNotFound, id.ID())
	},
}
