// Package msgboard provides an embeddable message console for services that
// talk JSON-RPC over a WebSocket.
//
// The console shows the state of one long-lived channel to a message
// service and lets an operator send a message to any recipient. It is
// served as a small web page; the widget itself is rendered on the server
// and pushed to browsers as HTML fragments.
//
// # Quick Start
//
//	c, _ := msgboard.New(
//	    msgboard.WithServiceURL("ws://localhost:9501/message"),
//	    msgboard.WithAccount("7"),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	c.Start(ctx) // blocks until context is cancelled
//
// # Building Blocks
//
// The pieces [Console] wires together can be used on their own:
//
//   - [StatusPanel] and [Render]: a header glyph plus a table of
//     [StatusEntry] rows, each cell drawn by a [Decorator]
//   - [MessageComposer]: the send-message [FormSpec] and its submit logic
//   - [Widget]: the two-tab widget that follows a [Channel]'s lifecycle
//     through the [Phase] values Connecting, Connected and Errored
//
// [Channel], [FormRenderer] and [Notifier] are the seams to the outside. The
// console supplies WebSocket, HTML form and in-memory implementations.
//
// # Sending Messages
//
// Submitting the compose form is two-stage. The form answers synchronously
// with a [Verdict]: rejected when a field fails validation, accepted once the
// send_message request has been dispatched. The remote outcome arrives
// later as a notification ("Message sent!" or "Error <code>: <message>").
//
// # Architecture
//
// Internal packages (under internal/):
//
//   - internal/rpc: JSON-RPC 2.0 client and server over WebSocket
//   - internal/form: HTML form renderer with per-field validation
//   - internal/notify: Notification feed and widget snapshots with pub/sub
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/dom: HTML node helpers
//   - dashboard: Embedded console page
package msgboard
