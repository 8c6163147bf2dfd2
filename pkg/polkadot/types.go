package polkadot

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/polkaclient/polkaclient/pkg/scale"
)

// SystemInfo combines system_chain, system_name, system_version and
// system_properties.
type SystemInfo struct {
	Chain   string
	Name    string
	Version string

	TokenSymbol   string
	TokenDecimals int
	SS58Format    int
}

// RuntimeVersion is the result of state_getRuntimeVersion and the payload of
// runtime version notifications.
type RuntimeVersion struct {
	SpecName           string       `json:"specName"`
	ImplName           string       `json:"implName"`
	AuthoringVersion   uint32       `json:"authoringVersion"`
	SpecVersion        uint32       `json:"specVersion"`
	ImplVersion        uint32       `json:"implVersion"`
	TransactionVersion uint32       `json:"transactionVersion"`
	APIs               []RuntimeAPI `json:"apis"`
}

// RuntimeAPI is one entry of RuntimeVersion.APIs, sent by the node as an
// [id, version] pair.
type RuntimeAPI struct {
	ID      string
	Version uint32
}

func (a *RuntimeAPI) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("runtime api entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &a.ID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &a.Version)
}

func (a RuntimeAPI) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{a.ID, a.Version})
}

// AccountInfo is the System.Account storage value.
type AccountInfo struct {
	Nonce       uint32
	Consumers   uint32
	Providers   uint32
	Sufficients uint32
	Data        AccountData
}

// AccountData holds the balances of an account, in planck.
type AccountData struct {
	Free     *big.Int
	Reserved *big.Int
	Frozen   *big.Int
	Flags    *big.Int
}

// EraSession is the latest staking era and session index seen by a
// SubscribeEraAndSession subscription.
type EraSession struct {
	Era     uint32
	Session uint32
}

// AccountDataType and AccountInfoType decode the System.Account value into
// AccountData and AccountInfo.
var (
	AccountDataType = &scale.Composite{
		Name: "AccountData",
		Fields: []scale.Field{
			{Name: "free", Type: scale.U128},
			{Name: "reserved", Type: scale.U128},
			{Name: "frozen", Type: scale.U128},
			{Name: "flags", Type: scale.U128},
		},
		Construct: func(r scale.Record) (any, error) {
			return AccountData{
				Free:     r["free"].(*big.Int),
				Reserved: r["reserved"].(*big.Int),
				Frozen:   r["frozen"].(*big.Int),
				Flags:    r["flags"].(*big.Int),
			}, nil
		},
		Deconstruct: func(v any) (scale.Record, error) {
			d, ok := v.(AccountData)
			if !ok {
				return nil, &scale.ValueTypeError{Type: "AccountData", Value: v}
			}
			return scale.Record{
				"free":     orZero(d.Free),
				"reserved": orZero(d.Reserved),
				"frozen":   orZero(d.Frozen),
				"flags":    orZero(d.Flags),
			}, nil
		},
	}

	AccountInfoType = &scale.Composite{
		Name: "AccountInfo",
		Fields: []scale.Field{
			{Name: "nonce", Type: scale.U32},
			{Name: "consumers", Type: scale.U32},
			{Name: "providers", Type: scale.U32},
			{Name: "sufficients", Type: scale.U32},
			{Name: "data", Type: AccountDataType},
		},
		Construct: func(r scale.Record) (any, error) {
			return AccountInfo{
				Nonce:       r["nonce"].(uint32),
				Consumers:   r["consumers"].(uint32),
				Providers:   r["providers"].(uint32),
				Sufficients: r["sufficients"].(uint32),
				Data:        r["data"].(AccountData),
			}, nil
		},
		Deconstruct: func(v any) (scale.Record, error) {
			a, ok := v.(AccountInfo)
			if !ok {
				return nil, &scale.ValueTypeError{Type: "AccountInfo", Value: v}
			}
			return scale.Record{
				"nonce":       a.Nonce,
				"consumers":   a.Consumers,
				"providers":   a.Providers,
				"sufficients": a.Sufficients,
				"data":        a.Data,
			}, nil
		},
	}
)

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
