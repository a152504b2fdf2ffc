package mex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Executor issues w:mex queries through a Querier and resolves the
// response envelope to a payload or a typed error. It performs no retries.
type Executor struct {
	querier Querier
	tags    TagGenerator
	logger  observability.Logger
	to      string
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTagGenerator sets the generator used for the iq id attribute.
func WithTagGenerator(tags TagGenerator) ExecutorOption {
	return func(e *Executor) {
		e.tags = tags
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger observability.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithTo overrides the iq destination, s.whatsapp.net by default.
func WithTo(to string) ExecutorOption {
	return func(e *Executor) {
		e.to = to
	}
}

// NewExecutor creates an Executor sending through querier.
func NewExecutor(querier Querier, opts ...ExecutorOption) *Executor {
	e := &Executor{
		querier: querier,
		tags:    NewUUIDTagGenerator(),
		logger:  observability.NewNullLogger(),
		to:      binary.ServerJID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends one query and returns data[path], or the whole data object
// when path is empty. Codec errors are returned unchanged; transport errors
// are wrapped.
func (e *Executor) Execute(ctx context.Context, queryID QueryID, variables Variables, path ResultPath) (payload json.RawMessage, err error) {
	ctx, span := observability.StartSpan(ctx, "mex.Execute")
	span.SetAttributes(
		attribute.String("query_id", string(queryID)),
		attribute.String("result_path", string(path)),
	)
	defer func() { observability.EndSpan(span, err) }()

	tag := e.tags.GenerateMessageTag()
	logger := e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"query_id": string(queryID),
		"tag":      tag,
	})

	node, err := NewQueryNode(tag, e.to, queryID, variables)
	if err != nil {
		return nil, err
	}

	logger.Debugf("sending mex query to %s", e.to)
	response, err := e.querier.Query(ctx, node)
	if err != nil {
		logger.WithErr(err).Warn("mex query failed")
		return nil, fmt.Errorf("mex: query %s: %w", queryID, err)
	}

	payload, err = DecodeResponse(response, path)
	if err != nil {
		logger.WithErr(err).Debug("mex response rejected")
		return nil, err
	}
	return payload, nil
}

// ExecuteInto runs Execute and unmarshals the payload into T.
func ExecuteInto[T any](ctx context.Context, e *Executor, queryID QueryID, variables Variables, path ResultPath) (T, error) {
	var out T
	payload, err := e.Execute(ctx, queryID, variables, path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, &MalformedResponseError{Reason: fmt.Sprintf("decode %s", path), Err: err}
	}
	return out, nil
}
