package main

import (
	"github.com/sevigo/diffwarden/internal/app"
	"github.com/sevigo/diffwarden/internal/core"
	"github.com/sevigo/diffwarden/internal/render"
	"github.com/sevigo/diffwarden/internal/review"
)

// Indicates that the core services have been initialized.
type reviewerInitializedMsg struct {
	reviewer *app.Reviewer
	cleanup  func()
	err      error
}

// A review whose diff has been collected and whose configuration is valid.
type reviewPreparedMsg struct {
	review *review.Review
	target string
	err    error
}

// A batch of surface operations, in delivery order.
type opsMsg struct {
	session *render.Session
	ops     []render.Op
}

type surfaceClosedMsg struct {
	session *render.Session
}

// The streaming loop has returned.
type reviewDoneMsg struct {
	session *render.Session
	text    string
	err     error
}

type historyLoadedMsg struct {
	reviews []core.Review
	err     error
}

type reviewLoadedMsg struct {
	review *core.Review
	err    error
}
