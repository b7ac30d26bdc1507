package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Strip placeholder pages and dead covers from the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			cleaned, err := rt.service.CleanupLogoImages(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("Cleaned %d records.\n", cleaned)
			return nil
		},
	}

	rootCmd.AddCommand(cleanupCmd)
}
