// ABOUTME: Per-capability handler functions registered with a core client
// ABOUTME: Replaces a single delegate object implementing every callback protocol

package messaging

import "context"

// Handlers carries the callbacks a core client invokes for service-driven
// events. Each handler is scoped to a single capability. Any handler may be
// nil, in which case the corresponding event is ignored.
type Handlers struct {
	// PreChat is invoked once per pre-chat form found in the remote
	// configuration, before any submission happens.
	PreChat func(form PreChatForm)

	// TemplatedURL supplies the substitution value for a named parameter
	// in a templated URL. Returning ok=false leaves the placeholder intact.
	TemplatedURL func(name string) (value string, ok bool)

	// UserVerification returns a signed credential when the deployment
	// requires user verification on session start.
	UserVerification func(ctx context.Context) (string, error)

	// Error is invoked for asynchronous failures, such as a broken entry
	// stream. Synchronous calls report errors through their return values.
	Error func(err error)
}
