package polkadot

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	"github.com/polkaclient/polkaclient/pkg/rpc"
	"github.com/polkaclient/polkaclient/pkg/scale"
)

const (
	subscribeStorage          = "state_subscribeStorage"
	unsubscribeStorage        = "state_unsubscribeStorage"
	subscribeNewHeads         = "chain_subscribeNewHeads"
	unsubscribeNewHeads       = "chain_unsubscribeNewHeads"
	subscribeRuntimeVersion   = "state_subscribeRuntimeVersion"
	unsubscribeRuntimeVersion = "state_unsubscribeRuntimeVersion"
)

// SubscribeBalance reports the free balance of address, in planck, each
// time its account entry changes. A reaped account reports zero.
func (a *API) SubscribeBalance(ctx context.Context, address string, handler func(context.Context, *big.Int)) (rpc.SubscriptionID, error) {
	return a.subscribeAccount(ctx, rpc.TopicBalance, address, func(ctx context.Context, info AccountInfo) {
		handler(ctx, info.Data.Free)
	})
}

// SubscribeAccountNonce reports the nonce of address each time its account
// entry changes.
func (a *API) SubscribeAccountNonce(ctx context.Context, address string, handler func(context.Context, uint32)) (rpc.SubscriptionID, error) {
	return a.subscribeAccount(ctx, rpc.TopicNonce, address, func(ctx context.Context, info AccountInfo) {
		handler(ctx, info.Nonce)
	})
}

func (a *API) subscribeAccount(ctx context.Context, kind rpc.TopicKind, address string, handler func(context.Context, AccountInfo)) (rpc.SubscriptionID, error) {
	key, err := a.accountKey(address)
	if err != nil {
		return "", err
	}
	topic := rpc.Topic{
		Kind:              kind,
		Key:               address,
		SubscribeMethod:   subscribeStorage,
		UnsubscribeMethod: unsubscribeStorage,
		Params:            []any{[]string{key}},
		Descriptor:        AccountInfoType,
		Extract:           changeFor(key),
	}
	return a.client.Subscribe(ctx, topic, func(ctx context.Context, n rpc.Notification) {
		info, ok := n.Value.(AccountInfo)
		if !ok {
			info = emptyAccount()
		}
		handler(ctx, info)
	})
}

// SubscribeStorage reports the raw value stored under key, or nil once the
// key is removed.
func (a *API) SubscribeStorage(ctx context.Context, key string, handler func(context.Context, []byte)) (rpc.SubscriptionID, error) {
	topic := rpc.Topic{
		Kind:              rpc.TopicStorage,
		Key:               strings.ToLower(key),
		SubscribeMethod:   subscribeStorage,
		UnsubscribeMethod: unsubscribeStorage,
		Params:            []any{[]string{key}},
	}
	return a.client.Subscribe(ctx, topic, func(ctx context.Context, n rpc.Notification) {
		set, err := parseChangeSet(n.Raw)
		if err != nil {
			a.lg.Warn("ignoring storage notification", "key", key, "error", err)
			return
		}
		value, found, err := set.Lookup(key)
		if err != nil || !found {
			a.lg.Warn("ignoring storage notification", "key", key, "found", found, "error", err)
			return
		}
		handler(ctx, value)
	})
}

type header struct {
	Number string `json:"number"`
}

// SubscribeBlockNumber reports the number of every new best block.
func (a *API) SubscribeBlockNumber(ctx context.Context, handler func(context.Context, uint64)) (rpc.SubscriptionID, error) {
	topic := rpc.Topic{
		Kind:              rpc.TopicBlockNumber,
		SubscribeMethod:   subscribeNewHeads,
		UnsubscribeMethod: unsubscribeNewHeads,
	}
	return a.client.Subscribe(ctx, topic, func(ctx context.Context, n rpc.Notification) {
		var h header
		if err := json.Unmarshal(n.Raw, &h); err != nil {
			a.lg.Warn("ignoring header notification", "error", err)
			return
		}
		number, err := parseBlockNumber(h.Number)
		if err != nil {
			a.lg.Warn("ignoring header notification", "number", h.Number, "error", err)
			return
		}
		handler(ctx, number)
	})
}

// parseBlockNumber accepts the 0x prefixed hex numbers found in headers,
// with or without leading zeros.
func parseBlockNumber(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 64)
}

// SubscribeRuntimeVersion reports runtime upgrades. The node sends the
// current version right after subscribing.
func (a *API) SubscribeRuntimeVersion(ctx context.Context, handler func(context.Context, RuntimeVersion)) (rpc.SubscriptionID, error) {
	topic := rpc.Topic{
		Kind:              rpc.TopicRuntimeVersion,
		SubscribeMethod:   subscribeRuntimeVersion,
		UnsubscribeMethod: unsubscribeRuntimeVersion,
	}
	return a.client.Subscribe(ctx, topic, func(ctx context.Context, n rpc.Notification) {
		var v RuntimeVersion
		if err := json.Unmarshal(n.Raw, &v); err != nil {
			a.lg.Warn("ignoring runtime version notification", "error", err)
			return
		}
		handler(ctx, v)
	})
}

// SubscribeEraAndSession watches Staking.CurrentEra and
// Session.CurrentIndex. Notifications that change only one of them are
// reported together with the last known value of the other.
func (a *API) SubscribeEraAndSession(ctx context.Context, handler func(context.Context, EraSession)) (rpc.SubscriptionID, error) {
	if a.keyer == nil {
		return "", ErrNoStorageKeyer
	}
	eraKey, err := a.keyer.PlainKey("Staking", "CurrentEra")
	if err != nil {
		return "", err
	}
	sessionKey, err := a.keyer.PlainKey("Session", "CurrentIndex")
	if err != nil {
		return "", err
	}

	codec := a.client.Codec()
	// Only the subscription worker touches last.
	var last EraSession
	topic := rpc.Topic{
		Kind:              rpc.TopicEraSession,
		SubscribeMethod:   subscribeStorage,
		UnsubscribeMethod: unsubscribeStorage,
		Params:            []any{[]string{eraKey, sessionKey}},
	}
	return a.client.Subscribe(ctx, topic, func(ctx context.Context, n rpc.Notification) {
		set, err := parseChangeSet(n.Raw)
		if err != nil {
			a.lg.Warn("ignoring era and session notification", "error", err)
			return
		}

		next := last
		changed := false
		for _, item := range []struct {
			key string
			dst *uint32
		}{{eraKey, &next.Era}, {sessionKey, &next.Session}} {
			value, found, err := set.Lookup(item.key)
			if err != nil {
				a.lg.Warn("ignoring era and session notification", "key", item.key, "error", err)
				return
			}
			if !found {
				continue
			}
			*item.dst = 0
			if value != nil {
				v, err := codec.Decode(value, scale.U32)
				if err != nil {
					a.lg.Warn("ignoring era and session notification", "key", item.key, "error", err)
					return
				}
				*item.dst = v.(uint32)
			}
			changed = true
		}
		if !changed {
			return
		}
		last = next
		handler(ctx, last)
	})
}

// Unsubscribe closes a subscription opened by any Subscribe method.
func (a *API) Unsubscribe(ctx context.Context, id rpc.SubscriptionID) error {
	return a.client.Unsubscribe(ctx, id)
}
