// Package notify provides the in-memory notification feed behind the
// console's toasts.
//
// The feed keeps a bounded history of recent notifications and fans every
// new one out to subscribers over buffered channels. The HTTP server
// subscribes one channel per Server-Sent Events client.
//
// This package is internal to msgboard. The feed satisfies
// [msgboard.Notifier] and is wired up by [msgboard.Console.Start].
package notify
