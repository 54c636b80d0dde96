// Package subroute maps a batch's subscription identifier to the handler
// bindings responsible for it. Identifiers are opaque strings grouped by
// namespace prefix; exact-match bindings and prefix bindings may coexist, and
// an exact match always wins over any prefix. An identifier nothing is bound
// to resolves to an empty set rather than an error, which keeps deployments
// forward-compatible with predicates they do not handle yet.
package subroute

import (
	"context"
	"sort"
	"strings"

	"github.com/gabapcia/hookrelay/internal/chainevent"
	"github.com/gabapcia/hookrelay/internal/extract"
)

// Handler consumes the domain events and retractions dispatched for one
// batch. Implementations own their side effects; the dispatch engine knows
// nothing beyond this contract.
type Handler interface {
	// Handle delivers the batch's events and retractions. Both slices may be
	// empty. A non-nil error marks this handler failed for the batch without
	// affecting sibling handlers.
	Handle(ctx context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, events []chainevent.DomainEvent, retractions []chainevent.RetractionEvent) error {
	return f(ctx, events, retractions)
}

// Binding pairs a named handler with the extractor set it consumes.
type Binding struct {
	Name       string
	Handler    Handler
	Extractors []extract.Extractor
}

// Router resolves subscription identifiers to their handler bindings.
type Router interface {
	// Resolve returns the ordered bindings for the identifier, or an empty
	// slice when nothing is bound to it.
	Resolve(subscriptionID string) []Binding
}

// router holds exact bindings keyed by identifier and prefix bindings sorted
// longest-prefix-first so the most specific namespace wins.
type router struct {
	exact    map[string][]Binding
	prefixes []prefixBindings
}

type prefixBindings struct {
	prefix   string
	bindings []Binding
}

var _ Router = (*router)(nil)

// Builder accumulates bindings and produces an immutable Router. Routers are
// built once during wiring and read concurrently afterwards.
type Builder struct {
	exact    map[string][]Binding
	prefixes map[string][]Binding
}

// NewBuilder returns an empty router builder.
func NewBuilder() *Builder {
	return &Builder{
		exact:    make(map[string][]Binding),
		prefixes: make(map[string][]Binding),
	}
}

// BindExact routes batches whose subscription identifier equals id to the
// given bindings, in the order they are registered.
func (b *Builder) BindExact(id string, bindings ...Binding) *Builder {
	b.exact[id] = append(b.exact[id], bindings...)
	return b
}

// BindPrefix routes batches whose subscription identifier starts with prefix
// to the given bindings. When several prefixes match one identifier, the
// longest one is chosen.
func (b *Builder) BindPrefix(prefix string, bindings ...Binding) *Builder {
	b.prefixes[prefix] = append(b.prefixes[prefix], bindings...)
	return b
}

// Build produces the immutable Router.
func (b *Builder) Build() Router {
	r := &router{
		exact:    make(map[string][]Binding, len(b.exact)),
		prefixes: make([]prefixBindings, 0, len(b.prefixes)),
	}

	for id, bindings := range b.exact {
		r.exact[id] = append([]Binding(nil), bindings...)
	}

	for prefix, bindings := range b.prefixes {
		r.prefixes = append(r.prefixes, prefixBindings{
			prefix:   prefix,
			bindings: append([]Binding(nil), bindings...),
		})
	}

	// Longest prefix first; ties broken lexicographically for determinism.
	sort.Slice(r.prefixes, func(i, j int) bool {
		pi, pj := r.prefixes[i].prefix, r.prefixes[j].prefix
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return pi < pj
	})

	return r
}

// Resolve implements Router. An exact binding shadows every prefix binding
// for the same identifier.
func (r *router) Resolve(subscriptionID string) []Binding {
	if bindings, ok := r.exact[subscriptionID]; ok {
		return bindings
	}

	for _, p := range r.prefixes {
		if strings.HasPrefix(subscriptionID, p.prefix) {
			return p.bindings
		}
	}

	return nil
}
