// Backup commands: the rotation kept by the atomic writer.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage file backups",
}

func init() {
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
}

var backupsListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "List retained backups of a managed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(false)
		if err != nil {
			return err
		}
		defer eng.close()

		backups, err := eng.writer.Backups(args[0])
		if err != nil {
			return err
		}
		return printOutput(backups, func() {
			for _, b := range backups {
				fmt.Printf("%s %s\n", b.Timestamp.Format("2006-01-02 15:04:05"), b.BackupPath)
			}
			if len(backups) == 0 {
				fmt.Println("no backups")
			}
		})
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore a managed file from its newest backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(true)
		if err != nil {
			return err
		}
		defer eng.close()

		if err := eng.writer.Restore(args[0]); err != nil {
			return err
		}
		fmt.Println("restored", args[0])
		return nil
	},
}
