package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/lock"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and store connectivity",
	Long: `Validate checks the configuration file and the wallet store to ensure a
sync can run.

Checks performed:
  - Configuration syntax and required fields
  - Root accounts parse on their chains
  - Wallet store opens and loads (table created for MySQL)
  - Sync lock state (MySQL only)

Example:
  godelegate validate --config godelegate.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", GetConfigFile())

	a, err := openApp(ctx)
	if err != nil {
		cmd.Printf("❌ %v\n", err)
		return fmt.Errorf("validation failed")
	}
	defer a.Close()

	roots, err := a.cfg.RootAccounts()
	if err != nil {
		cmd.Printf("❌ Roots: %v\n", err)
		return fmt.Errorf("validation failed")
	}
	searchable := 0
	for _, chain := range roots.Chains() {
		if a.registry.Lookup(chain).Any() {
			searchable++
		}
	}
	cmd.Printf("Chains: %d (%d with roots and a discovery mechanism)\n", len(a.cfg.Chains), searchable)
	cmd.Printf("Roots: %d\n", len(a.cfg.Roots))

	if a.manager != nil {
		if err := a.manager.Ping(ctx); err != nil {
			cmd.Printf("❌ Database connection failed: %v\n", err)
			return fmt.Errorf("validation failed")
		}
	}

	known, err := a.store.Load(ctx)
	if err != nil {
		cmd.Printf("❌ Store load failed: %v\n", err)
		return fmt.Errorf("validation failed")
	}
	cmd.Printf("Store: %s (%s), %d wallet(s)\n", a.storeName(), a.cfg.Store.Driver, len(known))

	if a.db != nil {
		running, err := lock.IsSyncRunning(ctx, a.db, a.storeName(), a.log)
		switch {
		case err != nil:
			cmd.Printf("⚠️  Could not check sync lock: %v\n", err)
		case running:
			cmd.Printf("⚠️  A sync is currently running against this store\n")
		}
	}

	if searchable == 0 {
		cmd.Printf("⚠️  No chain will be searched\n")
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ Configuration is valid")
	return nil
}
