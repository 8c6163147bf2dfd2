package polkadot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polkaclient/polkaclient/pkg/log"
	"github.com/polkaclient/polkaclient/pkg/rpc"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

var (
	// ErrNotFound is returned when the node answers null, e.g. for a block
	// number past the chain head.
	ErrNotFound = errors.New("not found")
	// ErrNoStorageKeyer is returned by account and storage helpers when the
	// API was built without a StorageKeyer.
	ErrNoStorageKeyer = errors.New("no storage keyer configured")
)

var _ Client = (*rpc.Client)(nil)

// Client is the part of *rpc.Client the facade uses.
type Client interface {
	Codec() *scale.Codec
	CallInto(ctx context.Context, out any, method string, params ...any) error
	CallDecode(ctx context.Context, d scale.Descriptor, method string, params ...any) (any, error)
	Subscribe(ctx context.Context, topic rpc.Topic, handler rpc.Handler) (rpc.SubscriptionID, error)
	Unsubscribe(ctx context.Context, id rpc.SubscriptionID) error
}

// StorageKeyer derives hex encoded storage keys. Implementations hash
// pallet and item names the way the connected runtime expects.
type StorageKeyer interface {
	// AccountKey returns the System.Account key of an SS58 address.
	AccountKey(address string) (string, error)
	// PlainKey returns the key of a storage item without map parameters,
	// e.g. ("Staking", "CurrentEra").
	PlainKey(pallet, item string) (string, error)
}

// API exposes typed node methods over a connected client.
type API struct {
	client Client
	keyer  StorageKeyer
	lg     log.Logger
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used for notifications that cannot be turned
// into typed values.
func WithLogger(lg log.Logger) Option { return func(a *API) { a.lg = lg } }

// New wraps client. keyer may be nil when no account or storage helpers
// are needed.
func New(client Client, keyer StorageKeyer, opts ...Option) *API {
	a := &API{client: client, keyer: keyer, lg: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(a)
	}
	a.lg = a.lg.WithName("polkadot")
	return a
}

// SystemInfo queries the chain name, node name, node version and chain
// properties.
func (a *API) SystemInfo(ctx context.Context) (SystemInfo, error) {
	var info SystemInfo
	if err := a.client.CallInto(ctx, &info.Chain, "system_chain"); err != nil {
		return SystemInfo{}, err
	}
	if err := a.client.CallInto(ctx, &info.Name, "system_name"); err != nil {
		return SystemInfo{}, err
	}
	if err := a.client.CallInto(ctx, &info.Version, "system_version"); err != nil {
		return SystemInfo{}, err
	}

	var props chainProperties
	if err := a.client.CallInto(ctx, &props, "system_properties"); err != nil {
		return SystemInfo{}, err
	}
	var err error
	if info.TokenSymbol, err = firstOf[string](props.TokenSymbol); err != nil {
		return SystemInfo{}, fmt.Errorf("tokenSymbol: %w", err)
	}
	if info.TokenDecimals, err = firstOf[int](props.TokenDecimals); err != nil {
		return SystemInfo{}, fmt.Errorf("tokenDecimals: %w", err)
	}
	if info.SS58Format, err = firstOf[int](props.SS58Format); err != nil {
		return SystemInfo{}, fmt.Errorf("ss58Format: %w", err)
	}
	return info, nil
}

type chainProperties struct {
	SS58Format    json.RawMessage `json:"ss58Format"`
	TokenDecimals json.RawMessage `json:"tokenDecimals"`
	TokenSymbol   json.RawMessage `json:"tokenSymbol"`
}

// firstOf reads a property that multi token chains send as an array. A
// missing property yields the zero value.
func firstOf[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return v, err
		}
		if len(list) > 0 {
			v = list[0]
		}
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// BlockHash returns the hash of block number. It returns ErrNotFound when
// the block does not exist yet.
func (a *API) BlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	return a.hash(ctx, "chain_getBlockHash", number)
}

// FinalizedHead returns the hash of the last finalized block.
func (a *API) FinalizedHead(ctx context.Context) (common.Hash, error) {
	return a.hash(ctx, "chain_getFinalizedHead")
}

func (a *API) hash(ctx context.Context, method string, params ...any) (common.Hash, error) {
	var h *common.Hash
	if err := a.client.CallInto(ctx, &h, method, params...); err != nil {
		return common.Hash{}, err
	}
	if h == nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, ErrNotFound)
	}
	return *h, nil
}

// RuntimeVersion returns the runtime version at blockHash, or at the best
// block when blockHash is nil.
func (a *API) RuntimeVersion(ctx context.Context, blockHash *common.Hash) (RuntimeVersion, error) {
	var params []any
	if blockHash != nil {
		params = append(params, blockHash.Hex())
	}
	var v RuntimeVersion
	if err := a.client.CallInto(ctx, &v, "state_getRuntimeVersion", params...); err != nil {
		return RuntimeVersion{}, err
	}
	return v, nil
}

// AccountInfo reads the System.Account entry of address. An account that
// does not exist on chain has a zero nonce and zero balances.
func (a *API) AccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	key, err := a.accountKey(address)
	if err != nil {
		return AccountInfo{}, err
	}
	v, err := a.client.CallDecode(ctx, AccountInfoType, "state_getStorage", key)
	if err != nil {
		return AccountInfo{}, err
	}
	if v == nil {
		return emptyAccount(), nil
	}
	return v.(AccountInfo), nil
}

func (a *API) accountKey(address string) (string, error) {
	if a.keyer == nil {
		return "", ErrNoStorageKeyer
	}
	key, err := a.keyer.AccountKey(address)
	if err != nil {
		return "", fmt.Errorf("account key for %s: %w", address, err)
	}
	return key, nil
}

func emptyAccount() AccountInfo {
	return AccountInfo{Data: AccountData{
		Free:     new(big.Int),
		Reserved: new(big.Int),
		Frozen:   new(big.Int),
		Flags:    new(big.Int),
	}}
}
