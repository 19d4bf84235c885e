// Install and uninstall commands for single resources.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/discovery"
	"github.com/tangentlab/switchyard/internal/resfile"
	"github.com/tangentlab/switchyard/pkg/types"
)

var (
	installGlobalFlag bool
	installProject    string
	installApps       []string
	installFromFile   string
	installFromRepo   string
)

var installCmd = &cobra.Command{
	Use:   "install <kind> <id>",
	Short: "Install a resource",
	Long: `Install places a resource in the global scope (every enabled app's
directory) or in one project's .claude tree. A resource is either installed
globally or per-project, never both: a global install replaces all project
installs of the same resource, and a project install is refused while a
global one exists.`,
	Args: cobra.ExactArgs(2),
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <kind> <id>",
	Short: "Uninstall a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runUninstall,
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, uninstallCmd} {
		cmd.Flags().BoolVar(&installGlobalFlag, "global", false, "target the global scope (default)")
		cmd.Flags().StringVar(&installProject, "project", "", "target a project root")
	}
	installCmd.Flags().StringSliceVar(&installApps, "app", nil, "apps to sync to (default: all)")
	installCmd.Flags().StringVar(&installFromFile, "from-file", "", "install content from a local file")
	installCmd.Flags().StringVar(&installFromRepo, "from-repo", "", "install from a repository (owner/name)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	kind, err := mustKind(args[0])
	if err != nil {
		return err
	}
	id := types.ParseIdentity(kind, args[1])
	sc, err := parseScopeFlags(installGlobalFlag, installProject)
	if err != nil {
		return err
	}
	apps, err := parseAppsFlag(installApps)
	if err != nil {
		return err
	}

	eng, err := openEngine(true)
	if err != nil {
		return err
	}
	defer eng.close()

	var res *types.Resource
	switch {
	case installFromFile != "":
		content, err := os.ReadFile(installFromFile)
		if err != nil {
			return err
		}
		res = resfile.BuildResource(id, content)
	case installFromRepo != "":
		res, err = fetchFromRepo(eng, id, installFromRepo)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: either --from-file or --from-repo is required", types.ErrValidation)
	}

	res.Apps = map[types.AppType]bool{}
	for _, app := range apps {
		res.Apps[app] = true
	}
	if err := eng.scope.Install(context.Background(), res, sc); err != nil {
		return err
	}
	fmt.Println("installed", id.ID(), "into", sc.String())
	return nil
}

// fetchFromRepo discovers the repository and downloads the matching item.
func fetchFromRepo(eng *engine, id types.Identity, slug string) (*types.Resource, error) {
	owner, name, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}
	repo, err := eng.store.GetRepository(owner, name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := eng.discoveryContext()
	defer cancel()

	items, err := eng.discoveryService().Discover(ctx, *repo, false)
	if err != nil {
		return nil, err
	}
	client := discovery.NewGitHubClient(eng.cfg.GitHubToken)
	for _, item := range items {
		if item.Identity() != id {
			continue
		}
		data, err := client.FetchContent(ctx, item)
		if err != nil {
			return nil, err
		}
		res := resfile.BuildResource(id, data)
		res.RepoOwner, res.RepoName, res.RepoBranch = item.RepoOwner, item.RepoName, item.RepoBranch
		return res, nil
	}
	return nil, fmt.Errorf("%w: %s not found in %s", types.ErrNotFound, id.ID(), repo.Key())
}

func runUninstall(cmd *cobra.Command, args []string) error {
	kind, err := mustKind(args[0])
	if err != nil {
		return err
	}
	id := types.ParseIdentity(kind, args[1])
	sc, err := parseScopeFlags(installGlobalFlag, installProject)
	if err != nil {
		return err
	}

	eng, err := openEngine(true)
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.scope.Uninstall(context.Background(), id, sc); err != nil {
		return err
	}
	fmt.Println("uninstalled", id.ID(), "from", sc.String())
	return nil
}
