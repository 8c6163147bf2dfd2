package rpc

import (
	"encoding/json"

	"github.com/puzpuzpuz/xsync/v3"
)

type callResult struct {
	result json.RawMessage
	err    error
}

// pendingCall is one request awaiting its response. done has room for
// exactly one result, so the side that removes the call from the table
// never blocks delivering it.
type pendingCall struct {
	done chan callResult
	// onResult runs on the reader goroutine before the caller is woken. A
	// non nil error replaces the result.
	onResult func(json.RawMessage) error
}

// pendingTable correlates responses with outstanding calls by request id.
// Whoever deletes an entry (resolve, failAll, remove or abandon) owns it:
// resolve and failAll deliver a result, remove and abandon report that
// nothing will be delivered to the waiting caller.
type pendingTable struct {
	calls *xsync.MapOf[uint64, *pendingCall]
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: xsync.NewMapOf[uint64, *pendingCall]()}
}

func (p *pendingTable) add(id uint64, onResult func(json.RawMessage) error) *pendingCall {
	pc := &pendingCall{done: make(chan callResult, 1), onResult: onResult}
	p.calls.Store(id, pc)
	return pc
}

// resolve delivers a response. It reports false for unknown ids.
func (p *pendingTable) resolve(id uint64, result json.RawMessage, rpcErr *RPCError) bool {
	pc, ok := p.calls.LoadAndDelete(id)
	if !ok {
		return false
	}

	switch {
	case rpcErr != nil:
		pc.done <- callResult{err: rpcErr}
	case len(result) == 0:
		pc.done <- callResult{err: ErrNoResponse}
	default:
		var err error
		if pc.onResult != nil {
			err = pc.onResult(result)
		}
		pc.done <- callResult{result: result, err: err}
	}
	return true
}

// remove drops the call and reports whether it was still pending.
func (p *pendingTable) remove(id uint64) bool {
	_, ok := p.calls.LoadAndDelete(id)
	return ok
}

// abandon gives up on id like remove. When late is non nil and the call is
// still pending, the entry stays in the table with nobody waiting on it, and
// a result arriving later is passed to late.
func (p *pendingTable) abandon(id uint64, late func(json.RawMessage)) bool {
	if late == nil {
		return p.remove(id)
	}

	var pending bool
	p.calls.Compute(id, func(_ *pendingCall, loaded bool) (*pendingCall, bool) {
		if !loaded {
			return nil, true
		}
		pending = true
		return &pendingCall{
			done: make(chan callResult, 1),
			onResult: func(result json.RawMessage) error {
				late(result)
				return nil
			},
		}, false
	})
	return pending
}

// failAll completes every pending call with err.
func (p *pendingTable) failAll(err error) {
	p.calls.Range(func(id uint64, _ *pendingCall) bool {
		if pc, ok := p.calls.LoadAndDelete(id); ok {
			pc.done <- callResult{err: err}
		}
		return true
	})
}

func (p *pendingTable) size() int { return p.calls.Size() }
