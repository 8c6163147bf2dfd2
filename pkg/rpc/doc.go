// Package rpc is a JSON-RPC 2.0 client for Substrate nodes that multiplexes
// calls and subscriptions over a single connection.
//
// One reader goroutine per connection routes every incoming frame. Frames
// with an id complete the matching pending call; subscription notifications
// are queued on the subscription they name and handed to its Handler by a
// dedicated worker, so a slow handler delays neither the reader nor other
// subscriptions. Malformed frames and notifications for unknown
// subscriptions are logged and dropped.
//
//	client := rpc.NewClient(rpc.WithConfig(cfg), rpc.WithLogger(lg))
//	if err := client.Connect(ctx, "wss://rpc.polkadot.io"); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	hash, err := client.Call(ctx, "chain_getBlockHash", 1)
//
// Subscriptions are keyed by topic kind and key. Subscribing again to the
// same key replaces the previous subscription: the old one is removed and
// unsubscribed on the node before the new request goes out.
//
// Disconnect fails every pending call with ErrConnectionClosed and drops
// all subscriptions. Lost connections are not re-established.
package rpc
