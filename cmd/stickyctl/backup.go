package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stickyboard/models"

	"github.com/spf13/cobra"
)

var backupFile string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore every board and note of the account",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON backup to --file or stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rt.requireLogin(); err != nil {
			return err
		}
		backup, err := rt.api.ExportBackup(cmd.Context())
		if err != nil {
			return describe(err)
		}

		var w io.Writer = rt.out
		if backupFile != "" && backupFile != "-" {
			f, err := os.OpenFile(backupFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(backup); err != nil {
			return err
		}
		if w != rt.out {
			notes := 0
			for _, b := range backup.Boards {
				notes += len(b.Notes)
			}
			return rt.printer().message("Exported %d boards and %d notes to %s", len(backup.Boards), notes, backupFile)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:     "restore <file>",
	Aliases: []string{"import"},
	Short:   "Add the boards of a backup file to the account",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rt.requireLogin(); err != nil {
			return err
		}
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var backup models.BackupData
		if err := json.Unmarshal(raw, &backup); err != nil {
			return fmt.Errorf("%s is not a backup file: %w", args[0], err)
		}
		res, err := rt.api.RestoreBackup(cmd.Context(), &backup)
		if err != nil {
			return describe(err)
		}
		return rt.printer().message("Restored %d boards and %d notes", res.Boards, res.Notes)
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupExportCmd.Flags().StringVarP(&backupFile, "file", "f", "", "output file (default stdout)")
	backupCmd.AddCommand(backupExportCmd, backupRestoreCmd)
}
