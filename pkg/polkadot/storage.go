package polkadot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StorageChangeSet is the result of a state_subscribeStorage notification.
// A nil value in Changes means the key was removed.
type StorageChangeSet struct {
	Block   string          `json:"block"`
	Changes []StorageChange `json:"changes"`
}

// StorageChange is one [key, value] pair of a StorageChangeSet.
type StorageChange struct {
	Key   string
	Value *string
}

func (c *StorageChange) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 || pair[0] == nil {
		return fmt.Errorf("storage change %s is not a [key, value] pair", data)
	}
	c.Key, c.Value = *pair[0], pair[1]
	return nil
}

// Lookup returns the decoded value stored under key. found is false when
// the set holds no change for key; a found key with nil bytes was removed.
func (s StorageChangeSet) Lookup(key string) (value []byte, found bool, err error) {
	for _, c := range s.Changes {
		if !strings.EqualFold(c.Key, key) {
			continue
		}
		if c.Value == nil {
			return nil, true, nil
		}
		value, err = hexutil.Decode(*c.Value)
		return value, true, err
	}
	return nil, false, nil
}

func parseChangeSet(result json.RawMessage) (StorageChangeSet, error) {
	var set StorageChangeSet
	if err := json.Unmarshal(result, &set); err != nil {
		return StorageChangeSet{}, fmt.Errorf("storage change set: %w", err)
	}
	return set, nil
}

// changeFor extracts the value of key from storage notifications. A
// notification that does not mention key is reported as an error and
// dropped.
func changeFor(key string) func(json.RawMessage) ([]byte, error) {
	return func(result json.RawMessage) ([]byte, error) {
		set, err := parseChangeSet(result)
		if err != nil {
			return nil, err
		}
		value, found, err := set.Lookup(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("no change for key %s", key)
		}
		return value, nil
	}
}
