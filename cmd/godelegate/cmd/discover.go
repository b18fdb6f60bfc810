package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	discoverDryRun bool
	discoverForce  bool
	discoverChains []string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover delegated wallets and sync the wallet store",
	Long: `Discover searches every configured chain for accounts the root keys can
act for, merges universal multisigs across chains and reconciles the result
with the stored wallet list.

Chains that cannot be checked are reported and never cause deletions.

Example:
  godelegate discover --config godelegate.yaml
  godelegate discover --dry-run --chains polkadot,kusama`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false,
		"Show the change set without applying it")
	discoverCmd.Flags().BoolVar(&discoverForce, "force", false,
		"Skip the sync lock check (dangerous)")
	discoverCmd.Flags().StringSliceVar(&discoverChains, "chains", nil,
		"Only search these chains; wallets on other chains are left untouched")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd, a.log)
	defer cancel()

	scope, err := a.parseScope(discoverChains)
	if err != nil {
		return err
	}

	orch, err := a.newOrchestrator(nil)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return a.withSyncLock(ctx, discoverForce, func() error {
		res, known, err := a.syncOnce(ctx, orch, scope, discoverDryRun)
		if res != nil {
			printRunSummary(outputWriter, res, a.registry)
			printChangeSet(outputWriter, res.ChangeSet, known, a.registry)
			if discoverDryRun {
				fmt.Fprintln(outputWriter, "Dry run: nothing was applied")
			}
		}
		return err
	})
}
