package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.tickex.io/tickex/ledger"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
)

func TestTransferRequiresKnownAsset(t *testing.T) {
	e := ledger.New(logging.NewTestLogger(), ledger.NewDefaultConfig())

	err := e.Transfer(context.Background(), "USDT", "alice", num.NewUint(10))
	assert.ErrorIs(t, err, ledger.ErrUnknownAsset)

	e.EnableAsset("USDT")
	require.NoError(t, e.Transfer(context.Background(), "USDT", "alice", num.NewUint(10)))
	require.NoError(t, e.Transfer(context.Background(), "USDT", "alice", num.NewUint(5)))
	assert.True(t, e.Balance("USDT", "alice").EQUint64(15))
	assert.True(t, e.Balance("USDT", "bob").IsZero())
}

func TestDepositEnablesAsset(t *testing.T) {
	e := ledger.New(logging.NewTestLogger(), ledger.NewDefaultConfig())

	e.Deposit("BTC", "bob", num.NewUint(3))
	assert.True(t, e.Balance("BTC", "bob").EQUint64(3))
	require.NoError(t, e.Transfer(context.Background(), "BTC", "bob", num.NewUint(1)))
	assert.True(t, e.Balance("BTC", "bob").EQUint64(4))
}
