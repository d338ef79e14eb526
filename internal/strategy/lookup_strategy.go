package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound means a lookup ran cleanly but the fact does not exist on
// this machine (tool missing, package absent, no such device). A chain
// moves on to its next strategy without recording a failure.
var ErrNotFound = errors.New("not found")

// LookupStrategy resolves one fact one way.
type LookupStrategy interface {
	Lookup(ctx context.Context) (string, error)
	GetStrategyName() string
}

type funcStrategy struct {
	name string
	fn   func(ctx context.Context) (string, error)
}

// New wraps a function as a named strategy.
func New(name string, fn func(ctx context.Context) (string, error)) LookupStrategy {
	return &funcStrategy{name: name, fn: fn}
}

func (s *funcStrategy) Lookup(ctx context.Context) (string, error) {
	return s.fn(ctx)
}

func (s *funcStrategy) GetStrategyName() string {
	return s.name
}

// Static returns a strategy that always yields value.
func Static(name, value string) LookupStrategy {
	return New(name, func(context.Context) (string, error) { return value, nil })
}

// Chain tries strategies in order; the first non-empty success wins.
type Chain struct {
	strategies []LookupStrategy
}

// NewChain creates a chain over the given strategies
func NewChain(strategies ...LookupStrategy) *Chain {
	return &Chain{strategies: strategies}
}

// Then appends a strategy and returns the chain
func (c *Chain) Then(s LookupStrategy) *Chain {
	c.strategies = append(c.strategies, s)
	return c
}

// Len returns the number of strategies
func (c *Chain) Len() int {
	return len(c.strategies)
}

// Resolve runs the chain. It returns ErrNotFound when every strategy
// reported not-found (or the chain is empty) and a combined error when at
// least one strategy failed outright. A panicking strategy counts as a
// failure. Resolve stops early if ctx is done.
func (c *Chain) Resolve(ctx context.Context) (string, error) {
	var failures []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		value, err := safeLookup(ctx, s)
		switch {
		case err == nil && strings.TrimSpace(value) != "":
			return strings.TrimSpace(value), nil
		case err == nil, errors.Is(err, ErrNotFound):
			continue
		default:
			failures = append(failures, fmt.Errorf("%s: %w", s.GetStrategyName(), err))
		}
	}

	if len(failures) == 0 {
		return "", ErrNotFound
	}
	return "", errors.Join(failures...)
}

func safeLookup(ctx context.Context, s LookupStrategy) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Lookup(ctx)
}
