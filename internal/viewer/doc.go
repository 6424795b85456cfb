// Package viewer opens desktop windows for inspecting pipeline output.
//
// The windows are drawn with fyne, which needs cgo and the OpenGL/X11
// development headers. Builds without cgo get stubs that return
// ErrNoDisplay, so the headless commands still work.
//
// A fyne application may only be run once per process, so each command calls
// at most one of Show or TuneThreshold.
package viewer

import "errors"

// ErrNoDisplay is returned by Show and TuneThreshold in builds without cgo.
var ErrNoDisplay = errors.New("display support not compiled in")
