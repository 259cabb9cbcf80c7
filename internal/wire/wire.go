//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/diffwarden/internal/app"
)

// InitializeApp wires the review server.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(ServerSet)
	return &app.App{}, nil, nil
}

// InitializeReviewer wires the components used to review local changes.
func InitializeReviewer() (*app.Reviewer, func(), error) {
	wire.Build(ReviewerSet)
	return &app.Reviewer{}, nil, nil
}
