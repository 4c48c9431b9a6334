// Package rpc implements JSON-RPC 2.0 over a WebSocket, the bidirectional
// channel between the console widget and its backend service.
//
// Both sides are provided:
//
//   - [Client]: dials a service, sends requests and routes responses back to
//     callers by id, dispatches push notifications to handlers, and reports
//     open/close lifecycle events. It satisfies msgboard.Channel.
//   - [Server]: accepts WebSocket upgrades, dispatches requests to registered
//     methods, and lets handlers push notifications to a connected [Peer].
//
// Remote failures travel as [Error] values carrying a code, a message and
// optional data.
package rpc
