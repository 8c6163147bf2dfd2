package polkadot_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkaclient/polkaclient/pkg/polkadot"
	"github.com/polkaclient/polkaclient/pkg/rpc"
	"github.com/polkaclient/polkaclient/pkg/rpc/rpctest"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

const (
	alice      = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceKey   = "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9de1e86a9a8c739864cf3cc5ec2bea59fd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	eraKey     = "0x5f3e4907f716ac89b6347d15ececedca0b6a45321efae92aea15e0740ec7afe7"
	sessionKey = "0xcec5070d609dd3497f72bde07fc96ba072763800a36a99fdfc7c10f6415f6ee6"
)

type testKeyer struct{}

func (testKeyer) AccountKey(address string) (string, error) {
	if address != alice {
		return "", errors.New("unknown address")
	}
	return aliceKey, nil
}

func (testKeyer) PlainKey(pallet, item string) (string, error) {
	switch pallet + "." + item {
	case "Staking.CurrentEra":
		return eraKey, nil
	case "Session.CurrentIndex":
		return sessionKey, nil
	}
	return "", errors.New("unknown storage item")
}

func newTestAPI(t *testing.T, node *rpctest.Node) (*polkadot.API, *rpc.Client) {
	t.Helper()

	cfg := rpc.DefaultConfig()
	cfg.CallTimeout = 2 * time.Second
	client := rpc.NewClient(rpc.WithConfig(cfg), rpc.WithTransportFactory(node.Factory()))
	require.NoError(t, client.Connect(context.Background(), "mem://node"))
	t.Cleanup(client.Disconnect)
	return polkadot.New(client, testKeyer{}), client
}

func encodeAccount(t *testing.T, info polkadot.AccountInfo) string {
	t.Helper()
	s, err := scale.NewCodec(nil).EncodeHex(info, polkadot.AccountInfoType)
	require.NoError(t, err)
	return s
}

func encodeU32(t *testing.T, v uint32) string {
	t.Helper()
	s, err := scale.NewCodec(nil).EncodeHex(v, scale.U32)
	require.NoError(t, err)
	return s
}

func changeSet(changes ...[]any) map[string]any {
	return map[string]any{"block": "0x01", "changes": changes}
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		require.FailNow(t, "nothing delivered")
	}
	var zero T
	return zero
}

func TestSystemInfo(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleResult("system_chain", "Kusama")
	node.HandleResult("system_name", "Parity Polkadot")
	node.HandleResult("system_version", "1.9.0")
	node.HandleResult("system_properties", map[string]any{
		"ss58Format":    2,
		"tokenDecimals": 12,
		"tokenSymbol":   "KSM",
	})
	api, _ := newTestAPI(t, node)

	info, err := api.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, polkadot.SystemInfo{
		Chain:         "Kusama",
		Name:          "Parity Polkadot",
		Version:       "1.9.0",
		TokenSymbol:   "KSM",
		TokenDecimals: 12,
		SS58Format:    2,
	}, info)
}

func TestSystemInfo_MultiTokenProperties(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleResult("system_chain", "Karura")
	node.HandleResult("system_name", "Acala Node")
	node.HandleResult("system_version", "2.0.0")
	node.HandleResult("system_properties", map[string]any{
		"tokenDecimals": []int{12, 12},
		"tokenSymbol":   []string{"KAR", "KUSD"},
	})
	api, _ := newTestAPI(t, node)

	info, err := api.SystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "KAR", info.TokenSymbol)
	assert.Equal(t, 12, info.TokenDecimals)
	assert.Zero(t, info.SS58Format)
}

func TestSystemInfo_CallFails(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleResult("system_chain", "Kusama")
	api, _ := newTestAPI(t, node)

	_, err := api.SystemInfo(context.Background())
	var rpcErr *rpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestBlockHash(t *testing.T) {
	t.Parallel()

	want := common.HexToHash("0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe")
	node := rpctest.NewNode()
	node.Handle("chain_getBlockHash", func(call *rpctest.Call) {
		var n uint64
		_ = call.Param(0, &n)
		if n == 0 {
			call.Reply(want.Hex())
			return
		}
		call.Reply(nil)
	})
	api, _ := newTestAPI(t, node)

	got, err := api.BlockHash(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = api.BlockHash(context.Background(), 1<<40)
	assert.ErrorIs(t, err, polkadot.ErrNotFound)
}

func TestFinalizedHead(t *testing.T) {
	t.Parallel()

	want := common.HexToHash("0x01")
	node := rpctest.NewNode()
	node.HandleResult("chain_getFinalizedHead", want.Hex())
	api, _ := newTestAPI(t, node)

	got, err := api.FinalizedHead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRuntimeVersion(t *testing.T) {
	t.Parallel()

	at := common.HexToHash("0xff")
	node := rpctest.NewNode()
	node.HandleResult("state_getRuntimeVersion", map[string]any{
		"specName":           "kusama",
		"implName":           "parity-kusama",
		"authoringVersion":   2,
		"specVersion":        9430,
		"implVersion":        0,
		"transactionVersion": 23,
		"apis":               [][]any{{"0xdf6acb689907609b", 4}},
	})
	api, _ := newTestAPI(t, node)

	v, err := api.RuntimeVersion(context.Background(), &at)
	require.NoError(t, err)
	assert.Equal(t, "kusama", v.SpecName)
	assert.Equal(t, uint32(9430), v.SpecVersion)
	assert.Equal(t, []polkadot.RuntimeAPI{{ID: "0xdf6acb689907609b", Version: 4}}, v.APIs)

	var param string
	require.NoError(t, node.CallsTo("state_getRuntimeVersion")[0].Param(0, &param))
	assert.Equal(t, at.Hex(), param)

	_, err = api.RuntimeVersion(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, node.CallsTo("state_getRuntimeVersion")[1].Params)
}

func TestAccountInfo(t *testing.T) {
	t.Parallel()

	stored := polkadot.AccountInfo{
		Nonce:     7,
		Providers: 1,
		Data: polkadot.AccountData{
			Free:     big.NewInt(1_500_000_000_000),
			Reserved: big.NewInt(10),
			Frozen:   big.NewInt(0),
			Flags:    new(big.Int).Lsh(big.NewInt(1), 127),
		},
	}
	node := rpctest.NewNode()
	node.Handle("state_getStorage", func(call *rpctest.Call) {
		var key string
		_ = call.Param(0, &key)
		if key == aliceKey {
			call.Reply(encodeAccount(t, stored))
			return
		}
		call.Reply(nil)
	})
	api, _ := newTestAPI(t, node)

	info, err := api.AccountInfo(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), info.Nonce)
	assert.Equal(t, uint32(1), info.Providers)
	assert.Equal(t, 0, stored.Data.Free.Cmp(info.Data.Free))
	assert.Equal(t, 0, stored.Data.Flags.Cmp(info.Data.Flags))

	_, err = api.AccountInfo(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestAccountInfo_MissingAccount(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleResult("state_getStorage", nil)
	api, _ := newTestAPI(t, node)

	info, err := api.AccountInfo(context.Background(), alice)
	require.NoError(t, err)
	assert.Zero(t, info.Nonce)
	assert.Zero(t, info.Data.Free.Sign())
}

func TestAccountInfo_NoKeyer(t *testing.T) {
	t.Parallel()

	_, client := newTestAPI(t, rpctest.NewNode())
	api := polkadot.New(client, nil)

	_, err := api.AccountInfo(context.Background(), alice)
	assert.ErrorIs(t, err, polkadot.ErrNoStorageKeyer)
	_, err = api.SubscribeEraAndSession(context.Background(), func(context.Context, polkadot.EraSession) {})
	assert.ErrorIs(t, err, polkadot.ErrNoStorageKeyer)
}

func storageNode() *rpctest.Node {
	node := rpctest.NewNode()
	node.HandleSubscribe("state_subscribeStorage")
	node.HandleUnsubscribe("state_unsubscribeStorage")
	return node
}

func TestSubscribeBalance(t *testing.T) {
	t.Parallel()

	node := storageNode()
	api, _ := newTestAPI(t, node)

	balances := make(chan *big.Int, 4)
	id, err := api.SubscribeBalance(context.Background(), alice, func(_ context.Context, free *big.Int) {
		balances <- free
	})
	require.NoError(t, err)

	var keys []string
	require.NoError(t, node.CallsTo("state_subscribeStorage")[0].Param(0, &keys))
	assert.Equal(t, []string{aliceKey}, keys)

	info := polkadot.AccountInfo{Data: polkadot.AccountData{Free: big.NewInt(42)}}
	node.Notify("state_storage", string(id), changeSet([]any{aliceKey, encodeAccount(t, info)}))
	assert.Equal(t, int64(42), await(t, balances).Int64())

	node.Notify("state_storage", string(id), changeSet([]any{aliceKey, nil}))
	assert.Zero(t, await(t, balances).Sign())

	require.NoError(t, api.Unsubscribe(context.Background(), id))
	assert.Equal(t, []string{string(id)}, node.Unsubscribed())
}

func TestSubscribeBalanceAndNonce_Coexist(t *testing.T) {
	t.Parallel()

	node := storageNode()
	api, client := newTestAPI(t, node)

	balances := make(chan *big.Int, 1)
	nonces := make(chan uint32, 1)
	balanceID, err := api.SubscribeBalance(context.Background(), alice, func(_ context.Context, free *big.Int) { balances <- free })
	require.NoError(t, err)
	nonceID, err := api.SubscribeAccountNonce(context.Background(), alice, func(_ context.Context, nonce uint32) { nonces <- nonce })
	require.NoError(t, err)
	assert.Equal(t, 2, client.Subscriptions())

	info := polkadot.AccountInfo{Nonce: 3, Data: polkadot.AccountData{Free: big.NewInt(5)}}
	value := encodeAccount(t, info)
	node.Notify("state_storage", string(balanceID), changeSet([]any{aliceKey, value}))
	node.Notify("state_storage", string(nonceID), changeSet([]any{aliceKey, value}))

	assert.Equal(t, int64(5), await(t, balances).Int64())
	assert.Equal(t, uint32(3), await(t, nonces))
}

func TestSubscribeBalance_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	node := storageNode()
	api, client := newTestAPI(t, node)

	first, err := api.SubscribeBalance(context.Background(), alice, func(context.Context, *big.Int) {})
	require.NoError(t, err)
	second, err := api.SubscribeBalance(context.Background(), alice, func(context.Context, *big.Int) {})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, client.Subscriptions())
	assert.Equal(t, []string{string(first)}, node.Unsubscribed())
}

func TestSubscribeStorage(t *testing.T) {
	t.Parallel()

	node := storageNode()
	api, _ := newTestAPI(t, node)

	values := make(chan []byte, 2)
	id, err := api.SubscribeStorage(context.Background(), eraKey, func(_ context.Context, v []byte) { values <- v })
	require.NoError(t, err)

	node.Notify("state_storage", string(id), changeSet([]any{eraKey, "0x0102"}))
	assert.Equal(t, []byte{1, 2}, await(t, values))

	node.Notify("state_storage", string(id), changeSet([]any{eraKey, nil}))
	assert.Nil(t, await(t, values))
}

func TestSubscribeBlockNumber(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleSubscribe("chain_subscribeNewHeads")
	node.HandleUnsubscribe("chain_unsubscribeNewHeads")
	api, _ := newTestAPI(t, node)

	numbers := make(chan uint64, 2)
	id, err := api.SubscribeBlockNumber(context.Background(), func(_ context.Context, n uint64) { numbers <- n })
	require.NoError(t, err)

	node.Notify("chain_newHead", string(id), map[string]any{"number": "bogus"})
	node.Notify("chain_newHead", string(id), map[string]any{"number": "0x00a1", "parentHash": "0x00"})
	assert.Equal(t, uint64(0xa1), await(t, numbers))

	require.NoError(t, api.Unsubscribe(context.Background(), id))
	assert.Equal(t, []string{string(id)}, node.Unsubscribed())
}

func TestSubscribeRuntimeVersion(t *testing.T) {
	t.Parallel()

	node := rpctest.NewNode()
	node.HandleSubscribe("state_subscribeRuntimeVersion")
	api, _ := newTestAPI(t, node)

	versions := make(chan polkadot.RuntimeVersion, 1)
	id, err := api.SubscribeRuntimeVersion(context.Background(), func(_ context.Context, v polkadot.RuntimeVersion) { versions <- v })
	require.NoError(t, err)

	node.Notify("state_runtimeVersion", string(id), map[string]any{"specName": "polkadot", "specVersion": 1000000})
	v := await(t, versions)
	assert.Equal(t, "polkadot", v.SpecName)
	assert.Equal(t, uint32(1000000), v.SpecVersion)
}

func TestSubscribeEraAndSession(t *testing.T) {
	t.Parallel()

	node := storageNode()
	api, _ := newTestAPI(t, node)

	updates := make(chan polkadot.EraSession, 4)
	id, err := api.SubscribeEraAndSession(context.Background(), func(_ context.Context, es polkadot.EraSession) { updates <- es })
	require.NoError(t, err)

	var keys []string
	require.NoError(t, node.CallsTo("state_subscribeStorage")[0].Param(0, &keys))
	assert.Equal(t, []string{eraKey, sessionKey}, keys)

	node.Notify("state_storage", string(id), changeSet(
		[]any{eraKey, encodeU32(t, 5)},
		[]any{sessionKey, encodeU32(t, 30)},
	))
	assert.Equal(t, polkadot.EraSession{Era: 5, Session: 30}, await(t, updates))

	node.Notify("state_storage", string(id), changeSet([]any{sessionKey, encodeU32(t, 31)}))
	assert.Equal(t, polkadot.EraSession{Era: 5, Session: 31}, await(t, updates))

	node.Notify("state_storage", string(id), changeSet([]any{"0xdead", "0x00"}))
	node.Notify("state_storage", string(id), changeSet([]any{eraKey, encodeU32(t, 6)}))
	assert.Equal(t, polkadot.EraSession{Era: 6, Session: 31}, await(t, updates))
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		planck   *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(15_000_000_000), 10, "1.5"},
		{big.NewInt(1), 12, "0.000000000001"},
		{big.NewInt(0), 12, "0"},
		{nil, 12, "0"},
		{new(big.Int).Lsh(big.NewInt(1), 100), 0, "1267650600228229401496703205376"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, polkadot.FormatBalance(tc.planck, tc.decimals).String())
	}
}

func TestParseBalance(t *testing.T) {
	got := polkadot.ParseBalance(decimal.RequireFromString("1.5"), 10)
	assert.Equal(t, "15000000000", got.String())

	got = polkadot.ParseBalance(decimal.RequireFromString("0.0000000000019"), 12)
	assert.Equal(t, "1", got.String())
}
