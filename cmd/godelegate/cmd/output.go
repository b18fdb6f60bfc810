package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/godelegate/internal/discovery"
	"github.com/dbsmedya/godelegate/internal/graph"
	"github.com/dbsmedya/godelegate/internal/ss58"
	"github.com/dbsmedya/godelegate/internal/types"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

// genericPrefix renders cross-chain accounts, which have no chain of their own.
const genericPrefix = 42

const (
	markerUpsert   = "+"
	markerDeletion = "-"
	markerNone     = " "
)

var statusColors = map[types.Status]color.Color{
	types.StatusNew:     color.Green,
	types.StatusActive:  color.Cyan,
	types.StatusRevoked: color.Yellow,
}

// walletRow is one line of a wallet table, already rendered to text.
type walletRow struct {
	marker    string
	name      string
	delegator string
	delegate  string
	kind      string
	status    string
	color     color.Color
}

// formatAccount renders id in the address format of scope's chain.
func formatAccount(reg *discovery.Registry, scope types.Scope, id types.AccountID) string {
	prefix := uint16(genericPrefix)
	if !scope.IsCrossChain() && reg != nil {
		if info, ok := reg.Info(scope.Chain); ok {
			prefix = info.AddressPrefix
		}
	}
	addr, err := ss58.Encode(id, prefix)
	if err != nil {
		return id.Hex()
	}
	return addr
}

func scopeTitle(reg *discovery.Registry, scope types.Scope) string {
	if scope.IsCrossChain() {
		return "cross-chain"
	}
	if reg != nil {
		if info, ok := reg.Info(scope.Chain); ok {
			return fmt.Sprintf("%s (prefix %d)", scope.Chain, info.AddressPrefix)
		}
	}
	return string(scope.Chain)
}

func newRow(reg *discovery.Registry, marker string, id types.DelegationIdentity, kind types.WalletKind, status types.Status, name *string) walletRow {
	row := walletRow{
		marker:    marker,
		name:      "-",
		delegator: formatAccount(reg, id.Scope, id.Delegator),
		delegate:  formatAccount(reg, id.Scope, id.Delegate),
		kind:      kind.String(),
		status:    status.String(),
		color:     statusColors[status],
	}
	if name != nil && *name != "" {
		row.name = *name
	}
	return row
}

// rowGroups keeps rows grouped by scope in first-seen order.
type rowGroups = orderedmap.OrderedMap[string, []walletRow]

func addRow(groups *rowGroups, title string, row walletRow) {
	rows, _ := groups.Get(title)
	groups.Set(title, append(rows, row))
}

// renderGroups prints each group as an aligned table. Widths are measured
// in terminal cells so wide display names do not break the columns.
func renderGroups(w io.Writer, groups *rowGroups) {
	for el := groups.Front(); el != nil; el = el.Next() {
		rows := el.Value
		fmt.Fprintf(w, "\n[%s]\n", color.Bold.Sprint(el.Key))

		var nameW, delegatorW, delegateW, kindW int
		for _, r := range rows {
			nameW = max(nameW, runewidth.StringWidth(r.name))
			delegatorW = max(delegatorW, runewidth.StringWidth(r.delegator))
			delegateW = max(delegateW, runewidth.StringWidth(r.delegate))
			kindW = max(kindW, runewidth.StringWidth(r.kind))
		}

		for _, r := range rows {
			fmt.Fprintf(w, "  %s %s  %s  <- %s  %s  %s\n",
				r.marker,
				runewidth.FillRight(r.name, nameW),
				runewidth.FillRight(r.delegator, delegatorW),
				runewidth.FillRight(r.delegate, delegateW),
				runewidth.FillRight(r.kind, kindW),
				r.color.Sprint(r.status))
		}
	}
}

// printChangeSet renders upserts and deletions grouped by scope. known
// supplies the kind and name of deleted wallets.
func printChangeSet(w io.Writer, cs types.ChangeSet, known []types.KnownWallet, reg *discovery.Registry) {
	if cs.IsEmpty() {
		fmt.Fprintln(w, "No changes")
		return
	}

	byKey := make(map[string]types.KnownWallet, len(known))
	for _, k := range known {
		byKey[k.Identity.Key()] = k
	}

	groups := orderedmap.NewOrderedMap[string, []walletRow]()
	for _, u := range cs.Upserts {
		addRow(groups, scopeTitle(reg, u.Identity.Scope),
			newRow(reg, markerUpsert, u.Identity, u.Kind, u.Status, u.DisplayName))
	}
	for _, id := range cs.Deletions {
		k := byKey[id.Key()]
		row := newRow(reg, markerDeletion, id, k.Kind, k.Status, k.DisplayName)
		row.status, row.color = "deleted", color.Red
		if k.WalletKey == "" {
			row.kind = "-"
		}
		addRow(groups, scopeTitle(reg, id.Scope), row)
	}

	renderGroups(w, groups)
	fmt.Fprintf(w, "\n%d upsert(s), %d deletion(s)\n", len(cs.Upserts), len(cs.Deletions))
}

// printWallets renders the stored wallet list grouped by scope.
func printWallets(w io.Writer, wallets []types.KnownWallet, reg *discovery.Registry) {
	if len(wallets) == 0 {
		fmt.Fprintln(w, "No wallets stored")
		return
	}

	sorted := append([]types.KnownWallet(nil), wallets...)
	sortKnown(sorted)

	groups := orderedmap.NewOrderedMap[string, []walletRow]()
	for _, k := range sorted {
		addRow(groups, scopeTitle(reg, k.Identity.Scope),
			newRow(reg, markerNone, k.Identity, k.Kind, k.Status, k.DisplayName))
	}

	renderGroups(w, groups)
	fmt.Fprintf(w, "\nTotal: %d wallet(s)\n", len(wallets))
}

// printRunSummary prints per-chain outcomes of a discovery run, including one
// delegation cycle per chain when the chain has any.
func printRunSummary(w io.Writer, res *discovery.Result, reg *discovery.Registry) {
	fmt.Fprintf(w, "Run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))

	chains := make([]types.ChainID, 0, len(res.Chains))
	for chain := range res.Chains {
		chains = append(chains, chain)
	}
	types.SortChainIDs(chains)

	for _, chain := range chains {
		rep := res.Chains[chain]
		fmt.Fprintf(w, "  %s %-12s %d relation(s), %d iteration(s), depth %d\n",
			color.Green.Sprint("ok"), chain, rep.Relations, rep.Stats.Iterations, rep.Stats.MaxDepth)
		if rep.Cycle != nil {
			printCycle(w, reg, chain, rep.Cycle)
		}
	}
	for _, chain := range res.FailedChainIDs() {
		fmt.Fprintf(w, "  %s %-12s %v\n", color.Red.Sprint("failed"), chain, res.FailedChains[chain])
	}
	if len(res.Skipped) > 0 {
		names := make([]string, len(res.Skipped))
		for i, chain := range res.Skipped {
			names[i] = string(chain)
		}
		fmt.Fprintf(w, "  skipped: %s\n", strings.Join(names, ", "))
	}
	if res.Partial() {
		fmt.Fprintln(w, color.Yellow.Sprint("Partial run: wallets on failed chains were kept"))
	}
}

func printCycle(w io.Writer, reg *discovery.Registry, chain types.ChainID, cycle *graph.CycleInfo) {
	scope := types.SingleChain(chain)
	path := make([]string, len(cycle.CyclePath))
	for i, id := range cycle.CyclePath {
		path[i] = formatAccount(reg, scope, id)
	}
	fmt.Fprintf(w, "     %s %s\n", color.Yellow.Sprint("cycle:"), strings.Join(path, " -> "))
	if behind := len(cycle.Behind()); behind > 0 {
		fmt.Fprintf(w, "     %d account(s) controlled only through the cycle\n", behind)
	}
}

func sortKnown(wallets []types.KnownWallet) {
	sort.Slice(wallets, func(i, j int) bool {
		return wallets[i].Identity.Key() < wallets[j].Identity.Key()
	})
}
