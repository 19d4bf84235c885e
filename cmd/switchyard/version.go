// Version command for the switchyard CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the build pipeline.
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the switchyard version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("switchyard", version)
	},
}
