package rpc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTable(t *testing.T) {
	p := newPendingTable()

	hooked := false
	first := p.add(1, func(json.RawMessage) error { hooked = true; return nil })
	second := p.add(2, nil)
	third := p.add(3, nil)
	assert.Equal(t, 3, p.size())

	assert.False(t, p.resolve(42, json.RawMessage(`1`), nil))

	require.True(t, p.resolve(2, nil, &RPCError{Code: 1, Message: "x"}))
	res := <-second.done
	var rpcErr *RPCError
	assert.ErrorAs(t, res.err, &rpcErr)

	require.True(t, p.resolve(1, json.RawMessage(`"ok"`), nil))
	res = <-first.done
	assert.NoError(t, res.err)
	assert.Equal(t, `"ok"`, string(res.result))
	assert.True(t, hooked)

	assert.False(t, p.resolve(1, json.RawMessage(`"again"`), nil))

	closed := errors.New("closed")
	p.failAll(closed)
	res = <-third.done
	assert.ErrorIs(t, res.err, closed)
	assert.Equal(t, 0, p.size())
	assert.False(t, p.remove(3))
}

func TestPendingTable_HookErrorAndEmptyResult(t *testing.T) {
	p := newPendingTable()
	hookErr := errors.New("rejected")

	pc := p.add(1, func(json.RawMessage) error { return hookErr })
	p.resolve(1, json.RawMessage(`"x"`), nil)
	assert.ErrorIs(t, (<-pc.done).err, hookErr)

	pc = p.add(2, nil)
	p.resolve(2, nil, nil)
	assert.ErrorIs(t, (<-pc.done).err, ErrNoResponse)

	p.add(3, nil)
	assert.True(t, p.remove(3))
	assert.False(t, p.resolve(3, json.RawMessage(`1`), nil))
}

func TestPendingTable_AbandonRoutesLateResult(t *testing.T) {
	p := newPendingTable()

	var late json.RawMessage
	pc := p.add(1, func(json.RawMessage) error { t.Error("hook of an abandoned call ran"); return nil })
	require.True(t, p.abandon(1, func(result json.RawMessage) { late = result }))
	assert.Equal(t, 1, p.size())

	require.True(t, p.resolve(1, json.RawMessage(`"sub-9"`), nil))
	assert.Equal(t, `"sub-9"`, string(late))
	assert.Empty(t, pc.done)
	assert.Equal(t, 0, p.size())

	assert.False(t, p.abandon(1, func(json.RawMessage) { t.Error("late ran for a finished call") }))

	p.add(2, nil)
	assert.True(t, p.abandon(2, nil))
	assert.Equal(t, 0, p.size())
}
