package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/godelegate/internal/config"
	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/source"
	"github.com/dbsmedya/godelegate/internal/types"
)

func acct(b byte) types.AccountID {
	var id types.AccountID
	id[0] = b
	return id
}

func newTestClient(srv *httptest.Server, pageSize int) *Client {
	return New(config.IndexerConfig{
		ProxyURL:       srv.URL + "/proxies",
		MultisigURL:    srv.URL + "/multisigs",
		IdentityURL:    srv.URL + "/identities",
		APIKey:         "token",
		TimeoutSeconds: 5,
		PageSize:       pageSize,
	}, logger.NewNop())
}

func TestFetchProxyTable_Paginates(t *testing.T) {
	var requests []proxyTableRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxies", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req proxyTableRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		switch req.Cursor {
		case "":
			_ = json.NewEncoder(w).Encode(proxyTableResponse{
				Proxies:    []proxyEntry{{Delegator: acct(1).Hex(), Delegatee: acct(2).Hex(), Type: "Any"}},
				NextCursor: "p2",
			})
		case "p2":
			_ = json.NewEncoder(w).Encode(proxyTableResponse{
				Proxies: []proxyEntry{{Delegator: acct(3).Hex(), Delegatee: acct(2).Hex(), Type: "Staking", Delay: 10}},
			})
		}
	}))
	defer srv.Close()

	rows, err := newTestClient(srv, 1).FetchProxyTable(context.Background(), "kusama")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, "kusama", requests[0].Chain)
	assert.Equal(t, 1, requests[0].Limit)

	require.Len(t, rows, 2)
	assert.Equal(t, types.ProxyRelation{
		Controller: acct(2), Controlled: acct(1), Kind: types.ProxyAny, Chain: "kusama",
	}, rows[0])
	assert.True(t, rows[1].HasDelay)
	assert.Equal(t, types.ProxyStaking, rows[1].Kind)
}

func TestFetchProxyTable_RepeatedCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(proxyTableResponse{NextCursor: "same"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 10).FetchProxyTable(context.Background(), "kusama")
	var de *source.DecodingError
	assert.ErrorAs(t, err, &de)
}

func TestFetchProxyTable_BadAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(proxyTableResponse{
			Proxies: []proxyEntry{{Delegator: "0x12", Delegatee: acct(2).Hex(), Type: "Any"}},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 10).FetchProxyTable(context.Background(), "kusama")
	var de *source.DecodingError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, types.ChainID("kusama"), de.Chain)
}

func TestPost_ErrorMapping(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv, 10).FindMultisigs(context.Background(), "polkadot", []types.AccountID{acct(1)})
		var rq *source.RemoteQueryError
		require.ErrorAs(t, err, &rq)
		assert.Equal(t, source.NameMultisig, rq.Source)
		assert.Contains(t, err.Error(), "503")
		assert.NotErrorIs(t, err, source.ErrConnectionUnavailable)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := newTestClient(srv, 10).FindMultisigs(context.Background(), "polkadot", []types.AccountID{acct(1)})
		var de *source.DecodingError
		assert.ErrorAs(t, err, &de)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := newTestClient(srv, 10)
		srv.Close()

		_, err := client.FindMultisigs(context.Background(), "polkadot", []types.AccountID{acct(1)})
		assert.ErrorIs(t, err, source.ErrConnectionUnavailable)
	})

	t.Run("cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := newTestClient(srv, 10).FindMultisigs(ctx, "polkadot", []types.AccountID{acct(1)})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestFindMultisigs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req multisigRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{acct(1).Hex()}, req.Signatories)

		_ = json.NewEncoder(w).Encode(multisigResponse{Multisigs: []multisigEntry{
			{Account: acct(9).Hex(), Signatories: []string{acct(1).Hex(), acct(2).Hex()}, Threshold: 2},
			{Signatories: []string{acct(1).Hex(), acct(3).Hex()}, Threshold: 1},
		}})
	}))
	defer srv.Close()

	records, err := newTestClient(srv, 10).FindMultisigs(context.Background(), "polkadot", []types.AccountID{acct(1)})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, acct(9), records[0].Account)
	assert.Equal(t, 2, records[0].Threshold)
	assert.True(t, records[1].Account.IsZero(), "missing account is left for derivation")
}

func TestFindMultisigs_EmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	records, err := newTestClient(srv, 10).FindMultisigs(context.Background(), "polkadot", nil)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestResolve(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req identityRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Accounts), 2)

		out := identityResponse{Identities: map[string]string{}}
		for _, a := range req.Accounts {
			if a == acct(1).Hex() {
				out.Identities[a] = "Treasury"
			}
		}
		out.Identities["garbage"] = "ignored"
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	client := newTestClient(srv, 2)
	require.True(t, client.HasIdentity())

	names, err := client.Resolve(context.Background(), types.NewAccountSet(acct(1), acct(2), acct(3)))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, map[types.AccountID]string{acct(1): "Treasury"}, names)
}

func TestResolve_NoEndpoint(t *testing.T) {
	client := New(config.IndexerConfig{}, logger.NewNop())
	assert.False(t, client.HasIdentity())

	names, err := client.Resolve(context.Background(), types.NewAccountSet(acct(1)))
	assert.NoError(t, err)
	assert.Empty(t, names)
}
