package proxy

import (
	"context"
	"sync"
)

// Identity is one outbound identity handed to a scrape run. An empty URL
// means a direct connection.
type Identity struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

func (id Identity) Direct() bool {
	return id.URL == ""
}

// Pool hands out proxy identities. Rotation policy lives behind the
// interface; callers only ask for the current identity or the next one.
type Pool interface {
	Current(ctx context.Context) (Identity, error)
	Rotate(ctx context.Context) (Identity, error)
}

// RoundRobin cycles through a fixed identity list. An empty list degrades
// to a single direct-connection identity so local runs need no proxies.
type RoundRobin struct {
	mu    sync.Mutex
	ids   []Identity
	index int
}

func NewRoundRobin(ids []Identity) *RoundRobin {
	return &RoundRobin{ids: ids}
}

func (r *RoundRobin) Current(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return Identity{}, nil
	}
	return r.ids[r.index], nil
}

func (r *RoundRobin) Rotate(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return Identity{}, nil
	}
	r.index = (r.index + 1) % len(r.ids)
	return r.ids[r.index], nil
}

type contextKey struct{}

// NewContext attaches the identity acquired for a scrape run so workers can
// route their requests through it.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
