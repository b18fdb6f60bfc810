package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dbsmedya/godelegate/internal/discovery"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List configured chains and their capabilities",
	Long: `Chains displays every chain in the configuration file with its address
prefix, discovery mechanisms and the number of root keys assigned to it.

Example:
  godelegate chains --config godelegate.yaml`,
	RunE: runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	roots, err := cfg.RootAccounts()
	if err != nil {
		return err
	}
	registry := discovery.RegistryFromConfig(cfg.Chains)

	cmd.Printf("Chains defined in %s:\n\n", GetConfigFile())
	cmd.Printf("  %-14s %-7s %-6s %-9s %-10s %s\n", "CHAIN", "PREFIX", "PROXY", "MULTISIG", "UNIVERSAL", "ROOTS")

	for _, chain := range registry.Chains() {
		info, _ := registry.Info(chain)
		caps := info.Capabilities
		cmd.Printf("  %-14s %-7d %-6s %-9s %-10s %d\n",
			chain, info.AddressPrefix,
			yesNo(caps.Proxy), yesNo(caps.Multisig), yesNo(caps.UniversalMultisig),
			len(roots[chain]))
		if !caps.Any() {
			cmd.Printf("      (no discovery mechanism, chain is never searched)\n")
		}
	}

	cmd.Printf("\nTotal: %d chain(s), %d universal\n", len(registry.Chains()), len(registry.Universal()))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
