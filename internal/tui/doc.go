// Package tui implements the Veridian terminal renderer.
//
// The terminal is the viewport: the grid trace walks over a virtual page
// that the user scrolls with the keyboard, and the trail is drawn into
// character cells. Built with Charmbracelet's BubbleTea, Lipgloss and
// Harmonica.
//
// Component architecture:
//
//	model.go     root model, message routing, Init/Update/View
//	stage.go     animator, cell surface and trail ramp
//	page.go      spring-scrolled virtual page (the animator's host)
//	theme.go     centralized color + style definitions
//	header.go    top bar, counters strip, footer with hints
//	timeline.go  live transition log
//	runlist.go   recorded run selector
//	detail.go    run summary + direction bars
//	diffview.go  parameter changes from the last config reload
//	toast.go     transient notifications
//	helpers.go   direction styles, truncation
package tui
