package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStorageCommand() *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect and maintain attachment storage",
	}

	var dryRun bool
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove stored files that no attachment row references",
		Long: `Lists every file under storage.root and removes those without an
attachment row. Files can be left behind when a cascade delete commits but
the physical removal fails; sweep reclaims them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done := bootstrap()
			defer done()

			res, err := a.Svc.Attachments.Sweep(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, n := range res.Orphaned {
				fmt.Fprintln(out, n)
			}
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			fmt.Fprintf(out, "scanned %d files, %s %d orphans\n", res.Scanned, verb, len(res.Orphaned))
			return nil
		},
	}
	sweepCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list orphaned files")

	storageCmd.AddCommand(sweepCmd)
	return storageCmd
}
