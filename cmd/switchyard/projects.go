// Projects command: recently used project roots from the host tool's logs.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/paths"
	"github.com/tangentlab/switchyard/internal/projects"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List recently used projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, excludeDir, err := paths.ClaudeProjectsLogDir()
		if err != nil {
			return err
		}
		loc := &projects.Locator{LogDir: logDir, ExcludeDir: excludeDir, Log: logger}
		list, err := loc.List()
		if err != nil {
			return err
		}
		return printOutput(list, func() {
			for _, p := range list {
				marker := " "
				if !p.IsValid {
					marker = "!"
				}
				fmt.Printf("%s %-20s %s\n", marker, p.Name, p.Path)
			}
			if len(list) == 0 {
				fmt.Println("no projects found")
			}
		})
	},
}
