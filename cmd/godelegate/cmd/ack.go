package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/reconcile"
)

var (
	ackDryRun bool
	ackForce  bool
)

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge new and revoked wallets",
	Long: `Ack marks the wallet list as reviewed: new wallets become active and
revoked wallets are removed from the store.

Example:
  godelegate ack --config godelegate.yaml`,
	RunE: runAck,
}

func init() {
	ackCmd.Flags().BoolVar(&ackDryRun, "dry-run", false,
		"Show the change set without applying it")
	ackCmd.Flags().BoolVar(&ackForce, "force", false,
		"Skip the sync lock check (dangerous)")

	rootCmd.AddCommand(ackCmd)
}

func runAck(cmd *cobra.Command, args []string) error {
	a, err := openApp(commandContext(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmd, a.log)
	defer cancel()

	return a.withSyncLock(ctx, ackForce, func() error {
		known, err := a.store.Load(ctx)
		if err != nil {
			return err
		}

		cs := reconcile.Acknowledge(known)
		printChangeSet(outputWriter, cs, known, a.registry)

		if ackDryRun {
			fmt.Fprintln(outputWriter, "Dry run: nothing was applied")
			return nil
		}
		if cs.IsEmpty() {
			return nil
		}
		if err := a.store.Apply(ctx, cs); err != nil {
			return fmt.Errorf("failed to apply acknowledgement: %w", err)
		}
		a.log.Infow("Wallets acknowledged", "activated", len(cs.Upserts), "removed", len(cs.Deletions))
		return nil
	})
}
