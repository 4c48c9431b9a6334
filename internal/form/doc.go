// Package form renders declarative forms as HTML and runs their submit
// pipeline.
//
// A [Renderer] draws a [Spec] into an attachment point, then accepts
// submissions through [Renderer.Submit]: per-field validation first, then
// the spec's Submit callback. A rejected submission redraws the form with
// the entered values and the error list; an accepted one redraws it with
// the values kept. The form never closes itself.
//
// This package is internal to msgboard; the root package adapts its
// FormSpec to [Spec].
package form
