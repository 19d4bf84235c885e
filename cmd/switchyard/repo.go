// Repository commands: the remote sources resources are discovered from.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/builtin"
	"github.com/tangentlab/switchyard/pkg/types"
)

var repoBranch string

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage resource repositories",
}

func init() {
	repoAddCmd.Flags().StringVar(&repoBranch, "branch", "main", "branch to discover from")

	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoEnableCmd)
	repoCmd.AddCommand(repoDisableCmd)
	repoCmd.AddCommand(repoRestoreDefaultsCmd)
}

// splitSlug parses "owner/name".
func splitSlug(slug string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("%w: expected owner/name, got %q", types.ErrValidation, slug)
	}
	return owner, name, nil
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories",
	Args:  cobra.NoArgs,
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
		return printOutput(repos, func() {
			for _, r := range repos {
				state := "enabled"
				if !r.Enabled {
					state = "disabled"
				}
				origin := ""
				if r.Builtin {
					origin = " (builtin)"
				}
				fmt.Printf("%-40s %-8s%s\n", r.Key(), state, origin)
			}
		})
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <owner/name>",
	Short: "Add a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := splitSlug(args[0])
		if err != nil {
			return err
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		repo := types.Repository{Owner: owner, Name: name, Branch: repoBranch, Enabled: true}
		if err := eng.store.UpsertRepository(repo); err != nil {
			return err
		}
		fmt.Println("added", repo.Key())
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <owner/name>",
	Short: "Remove a repository (builtins can only be disabled)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, name, err := splitSlug(args[0])
		if err != nil {
			return err
		}
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()
		return eng.store.DeleteRepository(owner, name)
	},
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable <owner/name>",
	Short: "Enable a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRepoEnabled(args[0], true) },
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable <owner/name>",
	Short: "Disable a repository without removing it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRepoEnabled(args[0], false) },
}

func setRepoEnabled(slug string, enabled bool) error {
	owner, name, err := splitSlug(slug)
	if err != nil {
		return err
	}
	eng, err := openEngine(true)
	if err != nil {
		return err
	}
	defer eng.close()
	return eng.store.SetRepositoryEnabled(owner, name, enabled)
}

var repoRestoreDefaultsCmd = &cobra.Command{
	Use:   "restore-defaults",
	Short: "Re-add and re-enable the packaged repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		restored, err := builtin.Restore(eng.store, logger)
		if err != nil {
			return err
		}
		fmt.Println("restored", restored, "repositories")
		return nil
	},
}
