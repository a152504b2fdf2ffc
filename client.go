package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/mex"
	"github.com/shaharia-lab/newsletter/observability"
)

// Config holds the collaborators and settings of a Client. Zero values
// are replaced with defaults by NewClient.
type Config struct {
	// Querier sends nodes and returns the correlated response. Required.
	Querier mex.Querier
	// Decrypter is needed by FetchMessages only.
	Decrypter Decrypter
	Sessions  SessionRepository
	Identity  IdentityProvider
	Tags      mex.TagGenerator
	Logger    observability.Logger
	QueryIDs  QueryIDs
	// DecodeConcurrency bounds concurrent item decodes; 0 means unbounded.
	DecodeConcurrency int
	// RateLimit caps outgoing queries per second; 0 disables limiting.
	RateLimit float64
}

// Option mutates a Config before the Client is built.
type Option func(*Config)

// WithLogger sets the logger shared by the client, the executor and the Decrypter.
func WithLogger(logger observability.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDecrypter sets the Decrypter and the session repository handed to it.
func WithDecrypter(decrypter Decrypter, sessions SessionRepository) Option {
	return func(c *Config) {
		c.Decrypter = decrypter
		c.Sessions = sessions
	}
}

// WithIdentity sets the own identity provider used for decryption.
func WithIdentity(identity IdentityProvider) Option {
	return func(c *Config) {
		c.Identity = identity
	}
}

// WithTagGenerator sets the generator of iq message tags.
func WithTagGenerator(tags mex.TagGenerator) Option {
	return func(c *Config) {
		c.Tags = tags
	}
}

// WithQueryIDs overrides operation identifiers; empty fields keep their default.
func WithQueryIDs(ids QueryIDs) Option {
	return func(c *Config) {
		c.QueryIDs = ids
	}
}

// WithDecodeConcurrency bounds the number of items decoded at once.
func WithDecodeConcurrency(n int) Option {
	return func(c *Config) {
		c.DecodeConcurrency = n
	}
}

// WithRateLimit caps outgoing queries to rps per second.
func WithRateLimit(rps float64) Option {
	return func(c *Config) {
		c.RateLimit = rps
	}
}

// Client performs newsletter operations over an injected transport.
type Client struct {
	querier     mex.Querier
	exec        *mex.Executor
	tags        mex.TagGenerator
	decrypter   Decrypter
	sessions    SessionRepository
	identity    IdentityProvider
	logger      observability.Logger
	ids         QueryIDs
	concurrency int
}

// NewClient builds a Client from config and opts.
func NewClient(config Config, opts ...Option) (*Client, error) {
	for _, opt := range opts {
		opt(&config)
	}
	if config.Querier == nil {
		return nil, errors.New("newsletter: querier is required")
	}
	if config.DecodeConcurrency < 0 {
		return nil, fmt.Errorf("newsletter: invalid decode concurrency %d", config.DecodeConcurrency)
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("newsletter: invalid rate limit %v", config.RateLimit)
	}
	if config.Logger == nil {
		config.Logger = observability.NewNullLogger()
	}
	if config.Tags == nil {
		config.Tags = mex.NewUUIDTagGenerator()
	}
	if config.Identity == nil {
		config.Identity = StaticIdentity{}
	}

	querier := config.Querier
	if config.RateLimit > 0 {
		querier = mex.NewRateLimitedQuerier(querier, config.RateLimit)
	}

	return &Client{
		querier: querier,
		exec: mex.NewExecutor(querier,
			mex.WithTagGenerator(config.Tags),
			mex.WithLogger(config.Logger),
		),
		tags:        config.Tags,
		decrypter:   config.Decrypter,
		sessions:    config.Sessions,
		identity:    config.Identity,
		logger:      config.Logger,
		ids:         config.QueryIDs.withDefaults(),
		concurrency: config.DecodeConcurrency,
	}, nil
}

// Executor exposes the underlying w:mex executor for operations this
// package does not wrap.
func (c *Client) Executor() *mex.Executor {
	return c.exec
}

// newsletterQuery sends an iq in the newsletter namespace.
func (c *Client) newsletterQuery(ctx context.Context, to, iqType string, content ...*binary.Node) (*binary.Node, error) {
	node := &binary.Node{
		Tag: "iq",
		Attrs: binary.Attrs{
			"id":    c.tags.GenerateMessageTag(),
			"type":  iqType,
			"xmlns": namespace,
			"to":    to,
		},
		Children: content,
	}
	response, err := c.querier.Query(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("newsletter: %s query to %s: %w", iqType, to, err)
	}
	return response, nil
}

// wmex runs a w:mex query whose variables carry the newsletter id.
func (c *Client) wmex(ctx context.Context, jid string, queryID mex.QueryID, extra mex.Variables, path mex.ResultPath) (json.RawMessage, error) {
	variables := mex.Variables{"newsletter_id": jid}
	for k, v := range extra {
		variables[k] = v
	}
	return c.exec.Execute(ctx, queryID, variables, path)
}
