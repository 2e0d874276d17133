// Package searchtest provides a canned search.Searcher for tests.
package searchtest

import (
	"context"
	"sync"

	"github.com/yorozuya-cybersecurity/catchit/internal/search"
)

// Call records one invocation of the fake
type Call struct {
	Kind       string
	Pattern    string
	Root       string
	Exclusions []string
	Platform   search.Platform
}

// Fake answers searches from canned output keyed by pattern. Patterns listed
// in Block wait for the context to end, patterns in Errors fail, and Panics
// makes the call panic.
type Fake struct {
	Content map[string][]string
	Names   map[string][]string
	Block   map[string]bool
	Errors  map[string]error
	Panics  map[string]bool

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) SearchContent(ctx context.Context, pattern, root string, exclusions []string, p search.Platform) ([]string, error) {
	f.record(Call{Kind: "content", Pattern: pattern, Root: root, Exclusions: exclusions, Platform: p})
	return f.answer(ctx, pattern, f.Content)
}

func (f *Fake) SearchNames(ctx context.Context, root, pattern string, p search.Platform) ([]string, error) {
	f.record(Call{Kind: "names", Pattern: pattern, Root: root, Platform: p})
	return f.answer(ctx, pattern, f.Names)
}

func (f *Fake) answer(ctx context.Context, pattern string, canned map[string][]string) ([]string, error) {
	if f.Panics[pattern] {
		panic("searchtest: induced panic for " + pattern)
	}
	if f.Block[pattern] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.Errors[pattern]; err != nil {
		return nil, err
	}
	return canned[pattern], nil
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns every invocation so far
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Searcher adapts the fake to the search.Searcher interface
func (f *Fake) Searcher() search.Searcher {
	return adapter{f}
}

type adapter struct{ f *Fake }

func (a adapter) Content(ctx context.Context, pattern, root string, exclusions []string, p search.Platform) ([]string, error) {
	return a.f.SearchContent(ctx, pattern, root, exclusions, p)
}

func (a adapter) Names(ctx context.Context, root, pattern string, p search.Platform) ([]string, error) {
	return a.f.SearchNames(ctx, root, pattern, p)
}
