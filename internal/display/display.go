// Package display shows the remote canvas in a desktop window and turns
// local keyboard and pointer activity into input events.
package display

// Display renders the canvas and captures user input.
type Display interface {
	// Run blocks until the window is closed. Must be called from the
	// main goroutine.
	Run() error
}
