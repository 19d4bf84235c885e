// Namespace commands: grouping keys over installed resources.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var namespaceCmd = &cobra.Command{
	Use:   "namespace",
	Short: "Manage resource namespaces",
}

func init() {
	namespaceCmd.AddCommand(namespaceListCmd)
	namespaceCmd.AddCommand(namespaceCreateCmd)
	namespaceCmd.AddCommand(namespaceDeleteCmd)
}

var namespaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List namespaces with resource counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(false)
		if err != nil {
			return err
		}
		defer eng.close()

		namespaces, err := eng.scope.Namespaces()
		if err != nil {
			return err
		}
		return printOutput(namespaces, func() {
			for _, ns := range namespaces {
				name := ns.Name
				if name == "" {
					name = "(root)"
				}
				fmt.Printf("%-24s %d\n", name, ns.Count)
			}
		})
	},
}

var namespaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()
		return eng.scope.CreateNamespace(args[0])
	},
}

var namespaceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an empty namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()
		return eng.scope.DeleteNamespace(args[0])
	},
}
