// Package dashboard provides the embedded console page for msgboard.
//
// The page is a thin shell: it fetches the widget markup rendered by the
// server, swaps it in on every "widget" event from /api/sse, shows
// "notification" events as alerts and posts the compose form to
// /api/compose. Users of the msgboard library should not need to interact
// with this package directly.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the console page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Console page with inline CSS and JavaScript
//
// The "{{.Title}}" marker in index.html is replaced by the server.
//
//go:embed assets/*
var Assets embed.FS
