package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/types"
)

var walletsStatus string

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List stored wallets",
	Long: `Wallets prints the stored wallet list grouped by scope, with addresses
rendered in each chain's format.

Example:
  godelegate wallets --status new`,
	RunE: runWallets,
}

func init() {
	walletsCmd.Flags().StringVar(&walletsStatus, "status", "",
		"Only list wallets with this status (new, active, revoked)")

	rootCmd.AddCommand(walletsCmd)
}

func runWallets(cmd *cobra.Command, args []string) error {
	var filter *types.Status
	if walletsStatus != "" {
		s, err := types.ParseStatus(walletsStatus)
		if err != nil {
			return err
		}
		filter = &s
	}

	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	known, err := a.store.Load(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to load wallets: %w", err)
	}

	if filter != nil {
		kept := known[:0]
		for _, k := range known {
			if k.Status == *filter {
				kept = append(kept, k)
			}
		}
		known = kept
	}

	printWallets(outputWriter, known, a.registry)
	return nil
}
