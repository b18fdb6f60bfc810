package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

func acct(b byte) types.AccountID {
	var id types.AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

var (
	root  = acct(0x01)
	proxy = acct(0x02)
	other = acct(0x03)
	msig  = acct(0x09)
)

func proxyRel(chain types.ChainID, controller, controlled types.AccountID) types.MergedRelation {
	rel := types.NewProxyRelation(controller, controlled, types.ProxyAny, chain, false)
	return types.MergedRelation{
		Identity: types.IdentityFor(rel, types.SingleChain(chain)),
		Relation: rel,
		Chains:   []types.ChainID{chain},
	}
}

func multisigRel(scope types.Scope, signatory types.AccountID, chains ...types.ChainID) types.MergedRelation {
	rel := types.NewMultisigRelation(msig, signatory, []types.AccountID{root, other, proxy}, 2)
	return types.MergedRelation{
		Identity: types.IdentityFor(rel, scope),
		Relation: rel,
		Chains:   chains,
	}
}

func knownFrom(w types.DiscoveredWallet) types.KnownWallet {
	return types.KnownWallet{
		WalletKey:   w.Identity.Key(),
		Identity:    w.Identity,
		Kind:        w.Kind,
		Status:      w.Status,
		DisplayName: w.DisplayName,
	}
}

func newEngine() *Engine {
	return NewEngine(Options{}, logger.NewNop())
}

func TestReconcile_NewWallet(t *testing.T) {
	rel := proxyRel("polkadot", root, proxy)

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{rel},
		Names:     map[types.AccountID]string{proxy: "Treasury"},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Empty(t, cs.Deletions)

	w := cs.Upserts[0]
	assert.Equal(t, rel.Identity, w.Identity)
	assert.Equal(t, types.StatusNew, w.Status)
	assert.Equal(t, types.KindOf(rel.Relation), w.Kind)
	require.NotNil(t, w.DisplayName)
	assert.Equal(t, "Treasury", *w.DisplayName)
}

func TestReconcile_Idempotent(t *testing.T) {
	in := Input{
		Roots: types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{
			proxyRel("polkadot", root, proxy),
			multisigRel(types.SingleChain("polkadot"), proxy, "polkadot"),
		},
		Names: map[types.AccountID]string{msig: "Council"},
	}
	engine := newEngine()

	first := engine.Reconcile(in)
	require.Len(t, first.Upserts, 2)

	for _, w := range first.Upserts {
		in.Known = append(in.Known, knownFrom(w))
	}

	second := engine.Reconcile(in)
	assert.True(t, second.IsEmpty(), "second run with the first run's output must be a no-op")
}

func TestReconcile_ChangedAttributesKeepStatus(t *testing.T) {
	rel := proxyRel("polkadot", root, proxy)
	old := "Old"
	known := types.KnownWallet{
		Identity:    rel.Identity,
		Kind:        types.KindOf(rel.Relation),
		Status:      types.StatusActive,
		DisplayName: &old,
	}

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{rel},
		Names:     map[types.AccountID]string{proxy: "New name"},
		Known:     []types.KnownWallet{known},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, types.StatusActive, cs.Upserts[0].Status)
	assert.Equal(t, "New name", *cs.Upserts[0].DisplayName)
}

func TestReconcile_UnresolvedNameKeepsStoredName(t *testing.T) {
	rel := proxyRel("polkadot", root, proxy)
	stored := "Treasury"
	known := types.KnownWallet{
		WalletKey:   "w-1",
		Identity:    rel.Identity,
		Kind:        types.KindOf(rel.Relation),
		Status:      types.StatusActive,
		DisplayName: &stored,
	}

	for name, names := range map[string]map[types.AccountID]string{
		"resolver down":  nil,
		"partial answer": {other: "Someone else"},
		"empty name":     {proxy: ""},
	} {
		t.Run(name, func(t *testing.T) {
			cs := newEngine().Reconcile(Input{
				Roots:     types.RootAccounts{"polkadot": {root}},
				Relations: []types.MergedRelation{rel},
				Names:     names,
				Known:     []types.KnownWallet{known},
			})
			assert.True(t, cs.IsEmpty(), "got %+v", cs)
		})
	}
}

func TestReconcile_StatusChangeKeepsStoredName(t *testing.T) {
	rel := proxyRel("polkadot", root, proxy)
	stored := "Treasury"
	known := types.KnownWallet{
		Identity:    rel.Identity,
		Kind:        types.KindOf(rel.Relation),
		Status:      types.StatusRevoked,
		DisplayName: &stored,
	}

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{rel},
		Known:     []types.KnownWallet{known},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, types.StatusNew, cs.Upserts[0].Status)
	require.NotNil(t, cs.Upserts[0].DisplayName)
	assert.Equal(t, "Treasury", *cs.Upserts[0].DisplayName)
}

func TestReconcile_RevokedRediscoveredIsNew(t *testing.T) {
	rel := proxyRel("polkadot", root, proxy)
	known := types.KnownWallet{
		Identity: rel.Identity,
		Kind:     types.KindOf(rel.Relation),
		Status:   types.StatusRevoked,
	}

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{rel},
		Known:     []types.KnownWallet{known},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, types.StatusNew, cs.Upserts[0].Status)
}

func TestReconcile_MissingControllerSuppressed(t *testing.T) {
	// Signatory "other" belongs to an unrelated wallet.
	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{multisigRel(types.SingleChain("polkadot"), other, "polkadot")},
	})

	assert.Empty(t, cs.Upserts)
	assert.Empty(t, cs.Deletions)
}

func TestReconcile_TransitiveControl(t *testing.T) {
	// root -> proxy (proxy account) -> msig (via signatory proxy)
	cs := newEngine().Reconcile(Input{
		Roots: types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{
			multisigRel(types.SingleChain("polkadot"), proxy, "polkadot"),
			proxyRel("polkadot", root, proxy),
		},
	})

	require.Len(t, cs.Upserts, 2)
	for _, w := range cs.Upserts {
		assert.Equal(t, types.StatusNew, w.Status)
	}
}

func TestReconcile_AcceptanceIsPerChain(t *testing.T) {
	// The proxy making "proxy" controlled exists on kusama only, so the
	// multisig found on polkadot has no controlled signatory there.
	cs := newEngine().Reconcile(Input{
		Roots: types.RootAccounts{"polkadot": {root}, "kusama": {root}},
		Relations: []types.MergedRelation{
			proxyRel("kusama", root, proxy),
			multisigRel(types.SingleChain("polkadot"), proxy, "polkadot"),
		},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, types.RelationProxy, cs.Upserts[0].Kind.Type)
}

func TestReconcile_CrossChainAcceptedOnAnyChain(t *testing.T) {
	rel := multisigRel(types.CrossChain(), root, "kusama", "polkadot")

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{rel},
	})

	require.Len(t, cs.Upserts, 1)
	assert.True(t, cs.Upserts[0].Identity.Scope.IsCrossChain())
}

func TestReconcile_DeletionOnDisappearance(t *testing.T) {
	gone := proxyRel("polkadot", root, other)
	kept := proxyRel("polkadot", root, proxy)

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{kept},
		Known: []types.KnownWallet{
			{Identity: gone.Identity, Kind: types.KindOf(gone.Relation), Status: types.StatusActive},
			{Identity: kept.Identity, Kind: types.KindOf(kept.Relation), Status: types.StatusActive},
		},
	})

	assert.Empty(t, cs.Upserts)
	assert.Equal(t, []types.DelegationIdentity{gone.Identity}, cs.Deletions)
}

func TestReconcile_UncheckedScopesRetained(t *testing.T) {
	onFailed := proxyRel("kusama", root, proxy)
	onChecked := proxyRel("polkadot", root, proxy)
	cross := multisigRel(types.CrossChain(), root, "kusama", "polkadot")

	known := []types.KnownWallet{
		{Identity: onFailed.Identity, Kind: types.KindOf(onFailed.Relation), Status: types.StatusActive},
		{Identity: onChecked.Identity, Kind: types.KindOf(onChecked.Relation), Status: types.StatusActive},
		{Identity: cross.Identity, Kind: types.KindOf(cross.Relation), Status: types.StatusActive},
	}

	tests := []struct {
		name            string
		universalFailed bool
		want            []types.DelegationIdentity
	}{
		{"universal chain failed", true, []types.DelegationIdentity{onChecked.Identity}},
		{"universal chains checked", false, []types.DelegationIdentity{cross.Identity, onChecked.Identity}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := newEngine().Reconcile(Input{
				Roots:           types.RootAccounts{"polkadot": {root}, "kusama": {root}},
				Known:           known,
				FailedChains:    map[types.ChainID]bool{"kusama": true},
				UniversalFailed: tt.universalFailed,
			})
			assert.Empty(t, cs.Upserts)
			want := append([]types.DelegationIdentity(nil), tt.want...)
			types.SortIdentities(want)
			assert.Equal(t, want, cs.Deletions)
		})
	}
}

func TestReconcile_RevokeMissing(t *testing.T) {
	active := proxyRel("polkadot", root, proxy)
	revoked := proxyRel("polkadot", root, other)

	cs := NewEngine(Options{RevokeMissing: true}, logger.NewNop()).Reconcile(Input{
		Roots: types.RootAccounts{"polkadot": {root}},
		Known: []types.KnownWallet{
			{Identity: active.Identity, Kind: types.KindOf(active.Relation), Status: types.StatusActive},
			{Identity: revoked.Identity, Kind: types.KindOf(revoked.Relation), Status: types.StatusRevoked},
		},
	})

	assert.Empty(t, cs.Deletions)
	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, active.Identity, cs.Upserts[0].Identity)
	assert.Equal(t, types.StatusRevoked, cs.Upserts[0].Status)
}

func TestReconcile_MalformedRelationDropped(t *testing.T) {
	bad := multisigRel(types.SingleChain("polkadot"), root, "polkadot")
	bad.Relation.Multisig.Threshold = 7
	good := proxyRel("polkadot", root, proxy)

	cs := newEngine().Reconcile(Input{
		Roots:     types.RootAccounts{"polkadot": {root}},
		Relations: []types.MergedRelation{bad, good},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, good.Identity, cs.Upserts[0].Identity)
}

func TestReconcile_SortedOutput(t *testing.T) {
	cs := newEngine().Reconcile(Input{
		Roots: types.RootAccounts{"polkadot": {root}, "kusama": {root}},
		Relations: []types.MergedRelation{
			proxyRel("polkadot", root, proxy),
			proxyRel("kusama", root, proxy),
			proxyRel("polkadot", root, other),
		},
	})

	require.Len(t, cs.Upserts, 3)
	for i := 1; i < len(cs.Upserts); i++ {
		assert.Less(t, cs.Upserts[i-1].Identity.Key(), cs.Upserts[i].Identity.Key())
	}
}

func TestMergeCandidates_StatusPrecedence(t *testing.T) {
	rel := multisigRel(types.CrossChain(), root, "kusama", "polkadot")

	merged := MergeCandidates([]Candidate{
		{Relation: rel.Relation, Identity: rel.Identity, Status: types.StatusActive},
		{Relation: rel.Relation, Identity: rel.Identity, Status: types.StatusNew},
		{Relation: rel.Relation, Identity: rel.Identity, Status: types.StatusRevoked},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, types.StatusNew, merged[0].Status)
}

func TestReconcile_CrossChainAcceptedOnEveryChainOnce(t *testing.T) {
	rel := multisigRel(types.CrossChain(), root, "kusama", "polkadot")
	known := types.KnownWallet{
		Identity: rel.Identity,
		Kind:     types.KindOf(rel.Relation),
		Status:   types.StatusActive,
	}
	roots := types.RootAccounts{"polkadot": {root}, "kusama": {root}}

	cs := newEngine().Reconcile(Input{
		Roots:     roots,
		Relations: []types.MergedRelation{rel},
		Known:     []types.KnownWallet{known},
	})
	assert.True(t, cs.IsEmpty(), "both chain passes propose the stored status")

	known.Status = types.StatusRevoked
	cs = newEngine().Reconcile(Input{
		Roots:     roots,
		Relations: []types.MergedRelation{rel},
		Known:     []types.KnownWallet{known},
	})
	require.Len(t, cs.Upserts, 1, "one upsert for an identity accepted on two chains")
	assert.Equal(t, types.StatusNew, cs.Upserts[0].Status)
}

func TestAcknowledge(t *testing.T) {
	fresh := proxyRel("polkadot", root, proxy)
	active := proxyRel("polkadot", root, other)
	revoked := proxyRel("kusama", root, proxy)

	cs := Acknowledge([]types.KnownWallet{
		{Identity: fresh.Identity, Kind: types.KindOf(fresh.Relation), Status: types.StatusNew},
		{Identity: active.Identity, Kind: types.KindOf(active.Relation), Status: types.StatusActive},
		{Identity: revoked.Identity, Kind: types.KindOf(revoked.Relation), Status: types.StatusRevoked},
	})

	require.Len(t, cs.Upserts, 1)
	assert.Equal(t, fresh.Identity, cs.Upserts[0].Identity)
	assert.Equal(t, types.StatusActive, cs.Upserts[0].Status)
	assert.Equal(t, []types.DelegationIdentity{revoked.Identity}, cs.Deletions)
}
