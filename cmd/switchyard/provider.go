// Provider commands: named credential/config profiles per app.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/adapters"
	"github.com/tangentlab/switchyard/pkg/types"
)

var (
	providerApp    string
	providerConfig string
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage provider profiles",
}

func init() {
	providerCmd.PersistentFlags().StringVar(&providerApp, "app", "", "target app (claude, codex, gemini)")

	providerAddCmd.Flags().StringVar(&providerConfig, "config", "", "provider config as a JSON blob")
	providerEditCmd.Flags().StringVar(&providerConfig, "config", "", "provider config as a JSON blob")

	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerAddCmd)
	providerCmd.AddCommand(providerEditCmd)
	providerCmd.AddCommand(providerRemoveCmd)
	providerCmd.AddCommand(providerUseCmd)
	providerCmd.AddCommand(providerImportCmd)
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provider profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(false)
		if err != nil {
			return err
		}
		defer eng.close()

		var app types.AppType
		if providerApp != "" {
			if app, err = types.ParseApp(providerApp); err != nil {
				return err
			}
		}
		providers, err := eng.store.ListProviders(app)
		if err != nil {
			return err
		}
		return printOutput(providers, func() {
			for _, p := range providers {
				marker := " "
				if p.Active {
					marker = "*"
				}
				fmt.Printf("%s %-8s %-20s %s\n", marker, p.App, p.DisplayName, p.ID)
			}
		})
	},
}

var providerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a provider profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.ParseApp(providerApp)
		if err != nil {
			return err
		}
		config, err := readConfigBlob(providerConfig)
		if err != nil {
			return err
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		p := &types.Provider{App: app, DisplayName: args[0], Config: config}
		if err := eng.store.SaveProvider(p); err != nil {
			return err
		}
		fmt.Println("added provider", p.ID)
		return nil
	},
}

var providerEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Replace a provider profile's config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := readConfigBlob(providerConfig)
		if err != nil {
			return err
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		p, err := eng.store.GetProvider(args[0])
		if err != nil {
			return err
		}
		p.Config = config
		if err := eng.store.SaveProvider(p); err != nil {
			return err
		}
		// An active profile's live files must follow the edit.
		if p.Active {
			return eng.orch.SyncProvider(context.Background(), p.App)
		}
		return nil
	},
}

var providerRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a provider profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()
		return eng.store.DeleteProvider(args[0])
	},
}

var providerUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Activate a provider profile and sync its live files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.ParseApp(providerApp)
		if err != nil {
			return err
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		if err := eng.store.SwitchActiveProvider(app, args[0]); err != nil {
			return err
		}
		if err := eng.orch.SyncProvider(context.Background(), app); err != nil {
			return err
		}
		fmt.Println("switched", app, "to provider", args[0])
		return nil
	},
}

var providerImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Create a provider profile from the app's current live files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.ParseApp(providerApp)
		if err != nil {
			return err
		}

		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		adapter, err := adapters.For(app)
		if err != nil {
			return err
		}
		live, err := eng.dirs.LiveFiles(app)
		if err != nil {
			return err
		}
		files := map[types.FileRole][]byte{}
		for role, path := range live {
			data, err := os.ReadFile(path)
			if os.IsNotExist(err) {
				continue
			}
			if err != nil {
				return err
			}
			files[role] = data
		}
		config, err := adapter.Parse(files)
		if err != nil {
			return err
		}

		p := &types.Provider{App: app, DisplayName: args[0], Config: config}
		if err := eng.store.SaveProvider(p); err != nil {
			return err
		}
		fmt.Println("imported provider", p.ID)
		return nil
	},
}

// readConfigBlob parses the --config flag, reading from stdin when the
// value is "-".
func readConfigBlob(value string) (json.RawMessage, error) {
	if value == "" {
		return json.RawMessage("{}"), nil
	}
	raw := []byte(value)
	if value == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read config from stdin: %w", err)
		}
		raw = data
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: config must be valid JSON", types.ErrValidation)
	}
	return json.RawMessage(raw), nil
}
