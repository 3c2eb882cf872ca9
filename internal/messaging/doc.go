// Package messaging is the typed client binding for the managed in-app
// messaging service.
//
// # Core client
//
// A CoreClient holds session state for one deployment, identified by the
// service descriptor. Handlers for service-driven events are registered
// once, at construction time, each scoped to a single capability:
//
//	core, err := messaging.NewCoreClient(desc, verificationRequired, messaging.Handlers{
//		PreChat:          func(form messaging.PreChatForm) { ... },
//		TemplatedURL:     func(name string) (string, bool) { ... },
//		UserVerification: func(ctx context.Context) (string, error) { ... },
//		Error:            func(err error) { ... },
//	}, logger)
//
// Start opens the session; when the deployment requires user verification
// the verification handler supplies a signed credential that is attached to
// every request.
//
// # Conversation client
//
// Conversation derives a client scoped to one conversation identifier:
//
//	conv := core.Conversation(id)
//	conv.SendText(ctx, "hello")
//	entries, err := conv.Entries(ctx) // newest-first
//
// Sends are direct pass-throughs: no queuing, retry, or delivery
// confirmation happens on this side. The service owns the conversation
// protocol and all delivery guarantees.
//
// # Live entries
//
// StreamEntries opens a Server-Sent Events stream of new entries. The
// channel closes when the stream ends or its context is cancelled;
// asynchronous stream failures go to the Error handler.
package messaging
