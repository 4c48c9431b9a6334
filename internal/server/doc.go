// Package server provides the HTTP server for the msgboard console.
//
// This package is internal to msgboard and handles all HTTP concerns:
//
//   - Page serving: the embedded console page at "/"
//   - Widget fragment: the live widget markup at "/api/widget"
//   - Notifications: recent toasts as JSON at "/api/notifications"
//   - Form submission: composer submissions at "/api/compose"
//   - Server-Sent Events: widget and notification updates at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the msgboard library should not need to interact with this
// package directly. The server is started by [msgboard.Console.Start].
package server
