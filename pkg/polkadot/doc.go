// Package polkadot is a thin facade over pkg/rpc for the node methods most
// applications need: chain information, block hashes, runtime versions,
// account state and the matching subscriptions.
//
// Subscriptions of the same kind and key replace each other: subscribing
// twice to the balance of one address keeps only the second handler. Every
// Subscribe method returns the id to pass to Unsubscribe.
//
// Storage key derivation needs runtime metadata and hashing that live
// outside this module, so callers supply it through a StorageKeyer.
//
// Example usage:
//
//	client := rpc.NewClient(rpc.WithLogger(lg))
//	if err := client.Connect(ctx, "ws://127.0.0.1:9944"); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	api := polkadot.New(client, keyer)
//	info, err := api.SystemInfo(ctx)
//	if err != nil {
//	    return err
//	}
//
//	id, err := api.SubscribeBalance(ctx, addr, func(_ context.Context, free *big.Int) {
//	    fmt.Println(polkadot.FormatBalance(free, info.TokenDecimals))
//	})
package polkadot
