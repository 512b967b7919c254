package router

import (
	"context"
	"math/rand/v2"

	"insulead-core/services/directory"
)

// Selector picks which approved contractors are invited to a lead.
type Selector interface {
	Select(ctx context.Context, candidates []*directory.Contractor, n int) []*directory.Contractor
}

// RandomSelector invites a uniformly random subset.
type RandomSelector struct{}

func NewRandomSelector() Selector { return RandomSelector{} }

func (RandomSelector) Select(_ context.Context, candidates []*directory.Contractor, n int) []*directory.Contractor {
	pool := append([]*directory.Contractor(nil), candidates...)
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n < len(pool) {
		pool = pool[:n]
	}
	return pool
}
