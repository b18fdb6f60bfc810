package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

func acct(b byte) types.AccountID {
	var id types.AccountID
	id[0] = b
	return id
}

type failing struct {
	partial map[types.AccountID]string
	seen    []types.AccountSet
}

func (f *failing) Resolve(_ context.Context, ids types.AccountSet) (map[types.AccountID]string, error) {
	f.seen = append(f.seen, ids)
	return f.partial, errors.New("identity endpoint down")
}

func TestStatic(t *testing.T) {
	s := Static{acct(1): "Treasury", acct(2): ""}

	names, err := s.Resolve(context.Background(), types.NewAccountSet(acct(1), acct(2), acct(3)))
	require.NoError(t, err)
	assert.Equal(t, map[types.AccountID]string{acct(1): "Treasury"}, names)
}

func TestChain_EarlierWinsAndPendingShrinks(t *testing.T) {
	second := &failing{partial: map[types.AccountID]string{acct(1): "ignored", acct(2): "Council"}}
	c := Chain{Static{acct(1): "Treasury"}, second}

	names, err := c.Resolve(context.Background(), types.NewAccountSet(acct(1), acct(2)))

	assert.ErrorIs(t, err, ErrPartialResolution)
	assert.Equal(t, map[types.AccountID]string{acct(1): "Treasury", acct(2): "Council"}, names)
	require.Len(t, second.seen, 1)
	assert.Equal(t, []types.AccountID{acct(2)}, second.seen[0].Sorted(), "resolved accounts are not asked again")
}

func TestChain_StopsWhenEverythingResolved(t *testing.T) {
	second := &failing{}
	c := Chain{Static{acct(1): "Treasury"}, second}

	_, err := c.Resolve(context.Background(), types.NewAccountSet(acct(1)))
	assert.NoError(t, err)
	assert.Empty(t, second.seen)
}

func TestBestEffort(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := logger.FromZap(zap.New(core))

	names := BestEffort(context.Background(), &failing{}, types.NewAccountSet(acct(1)), log)
	assert.NotNil(t, names)
	assert.Empty(t, names)
	assert.Equal(t, 1, logs.FilterMessage("identity resolution incomplete").Len())

	assert.Empty(t, BestEffort(context.Background(), nil, types.NewAccountSet(acct(1)), log))
}
