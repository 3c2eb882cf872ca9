// Package adapter binds the messaging service client to the UI-facing
// conversation feed.
//
// # Overview
//
// The adapter is glue, not a protocol: the messaging service owns the
// conversation lifecycle, transport, and delivery guarantees. This layer
// configures a client from the bundled service descriptor, registers one
// handler per capability (pre-chat, templated URL, user verification,
// error), keeps the persisted conversation identifier, and republishes
// fetched entries into the feed in chronological order.
//
// # Lifecycle
//
//	a := adapter.New(cfg, ids, fd)
//	if err := a.CreateClient(ctx); err != nil { ... }
//	a.FetchAndUpdateConversation(ctx)
//	a.SendTextMessage(ctx, "hello")
//
// Exactly one core client is constructed per CreateClient call and reused
// for every handler registration and conversation client derivation.
//
// After client creation the adapter asynchronously submits the deployment's
// first pre-chat form, filling required fields with a placeholder. Failures
// there are debug-logged and swallowed.
//
// # Degraded mode
//
// If the service descriptor is missing or malformed, CreateClient returns
// the error and no client exists; every subsequent fetch or send is a
// silent no-op rather than a panic.
package adapter
