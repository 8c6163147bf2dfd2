package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/polkaclient/polkaclient/pkg/scale"
)

// TopicKind groups subscriptions of the same nature.
type TopicKind string

const (
	TopicBalance        TopicKind = "balance"
	TopicNonce          TopicKind = "nonce"
	TopicStorage        TopicKind = "storage"
	TopicBlockNumber    TopicKind = "block-number"
	TopicRuntimeVersion TopicKind = "runtime-version"
	TopicEraSession     TopicKind = "era-session"
)

// TopicKey identifies a logical subscription. At most one subscription per
// key is live at a time.
type TopicKey struct {
	Kind TopicKind
	Key  string
}

func (k TopicKey) String() string {
	if k.Key == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Key
}

// PayloadExtractor pulls the encoded value out of a notification result.
// Returning nil bytes with a nil error delivers a nil Value.
type PayloadExtractor func(result json.RawMessage) ([]byte, error)

// Topic describes how to open, close and decode a subscription.
type Topic struct {
	Kind TopicKind
	// Key distinguishes topics of the same kind, e.g. an account or a
	// storage key. It may be empty.
	Key string

	SubscribeMethod   string
	UnsubscribeMethod string
	Params            []any

	// Descriptor decodes the extracted payload. With a nil Descriptor the
	// handler only receives the raw result.
	Descriptor scale.Descriptor
	// Extract defaults to HexResult.
	Extract PayloadExtractor
}

func (t Topic) key() TopicKey { return TopicKey{Kind: t.Kind, Key: t.Key} }

func (t Topic) validate() error {
	if t.Kind == "" || t.SubscribeMethod == "" {
		return fmt.Errorf("%w: kind and subscribe method are required", ErrInvalidTopic)
	}
	return nil
}

// HexResult treats the result as a 0x prefixed hex string. A JSON null
// yields no payload.
func HexResult(result json.RawMessage) ([]byte, error) {
	if string(result) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(result, &s); err != nil {
		return nil, fmt.Errorf("result is not a hex string: %w", err)
	}
	return hexutil.Decode(s)
}

// Notification is one update delivered to a Handler.
type Notification struct {
	Topic        TopicKey
	Subscription SubscriptionID
	Raw          json.RawMessage
	// Value is the decoded payload, or nil when the topic has no
	// Descriptor or the payload was empty.
	Value any
}

// Handler consumes notifications of one subscription. Calls for the same
// subscription never overlap. A handler that calls Subscribe or Unsubscribe
// must pass the context it was given, otherwise removing its own
// subscription would wait for the handler to return.
type Handler func(ctx context.Context, n Notification)
