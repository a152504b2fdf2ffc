package mex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaharia-lab/newsletter/binary"
	"golang.org/x/time/rate"
)

// Querier sends a node and waits for the correlated response node. Timeouts
// and correlation by the iq "id" attribute belong to the implementation.
type Querier interface {
	Query(ctx context.Context, node *binary.Node) (*binary.Node, error)
}

// QuerierFunc adapts a plain function to the Querier interface.
type QuerierFunc func(ctx context.Context, node *binary.Node) (*binary.Node, error)

func (f QuerierFunc) Query(ctx context.Context, node *binary.Node) (*binary.Node, error) {
	return f(ctx, node)
}

// TagGenerator produces a unique message tag per call.
type TagGenerator interface {
	GenerateMessageTag() string
}

// TagGeneratorFunc adapts a plain function to the TagGenerator interface.
type TagGeneratorFunc func() string

func (f TagGeneratorFunc) GenerateMessageTag() string {
	return f()
}

// NewUUIDTagGenerator returns a TagGenerator backed by random UUIDs.
func NewUUIDTagGenerator() TagGenerator {
	return TagGeneratorFunc(func() string {
		return uuid.New().String()
	})
}

// RateLimitedQuerier bounds the rate of outgoing queries of a wrapped Querier.
type RateLimitedQuerier struct {
	querier Querier
	limiter *rate.Limiter
}

// NewRateLimitedQuerier wraps querier so at most rps queries per second are sent.
func NewRateLimitedQuerier(querier Querier, rps float64) *RateLimitedQuerier {
	return &RateLimitedQuerier{
		querier: querier,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (q *RateLimitedQuerier) Query(ctx context.Context, node *binary.Node) (*binary.Node, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}
	return q.querier.Query(ctx, node)
}
