// Discover and cache commands: remote repository listings.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/pkg/types"
)

var discoverRefresh bool

var discoverCmd = &cobra.Command{
	Use:   "discover [owner/name]",
	Short: "List installable resources of enabled repositories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(false)
		if err != nil {
			return err
		}
		defer eng.close()

		repos, err := eng.store.ListRepositories()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			owner, name, err := splitSlug(args[0])
			if err != nil {
				return err
			}
			repo, err := eng.store.GetRepository(owner, name)
			if err != nil {
				return err
			}
			repos = repos[:0]
			repos = append(repos, *repo)
		}

		svc := eng.discoveryService()
		type listing struct {
			Repo  string                   `json:"repo"`
			Items []types.DiscoverableItem `json:"items"`
		}
		var all []listing
		for _, repo := range repos {
			if !repo.Enabled {
				continue
			}
			ctx, cancel := eng.discoveryContext()
			items, err := svc.Discover(ctx, repo, discoverRefresh)
			cancel()
			if err != nil {
				logger.Error("discovery failed", "repo", repo.Key(), "error", err)
				continue
			}
			all = append(all, listing{Repo: repo.Key(), Items: items})
		}
		return printOutput(all, func() {
			for _, l := range all {
				fmt.Println(l.Repo)
				for _, item := range l.Items {
					fmt.Printf("  %-8s %s\n", item.Kind, item.Name())
				}
			}
		})
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the discovery cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [owner[/name]]",
	Short: "Clear cached repository listings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		var owner, name string
		if len(args) == 1 {
			owner = args[0]
			if o, n, err := splitSlug(args[0]); err == nil {
				owner, name = o, n
			}
		}
		cleared, err := eng.discoveryService().ClearCache(owner, name)
		if err != nil {
			return err
		}
		fmt.Println("cleared", cleared, "cache entries")
		return nil
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverRefresh, "refresh", false, "bypass the cache and refetch")
	cacheCmd.AddCommand(cacheClearCmd)
}
