// Package feed pulls candidate news items from upstream feeds.
package feed

import (
	"context"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

// Params bound a single group fetch
type Params struct {
	Since time.Time // Oldest publication time wanted; zero means no bound
	Limit int       // Maximum items for the group; zero means provider default
}

// Provider fetches the items of one source group
type Provider interface {
	// Name is the provider identifier referenced by SourceGroup.Provider
	Name() string

	// Fetch returns the group's current items. It must honor ctx cancellation.
	Fetch(ctx context.Context, group model.SourceGroup, params Params) ([]model.RawItem, error)
}
