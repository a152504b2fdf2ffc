package mex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockQuerier is a mock implementation of the Querier interface
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, node *binary.Node) (*binary.Node, error) {
	args := m.Called(ctx, node)
	var r0 *binary.Node
	if args.Get(0) != nil {
		r0 = args.Get(0).(*binary.Node)
	}
	return r0, args.Error(1)
}

func resultNode(content string) *binary.Node {
	return &binary.Node{
		Tag:      "iq",
		Attrs:    binary.Attrs{"type": "result"},
		Children: []*binary.Node{{Tag: "result", Content: []byte(content)}},
	}
}

func fixedTags(tag string) TagGenerator {
	return TagGeneratorFunc(func() string { return tag })
}

func TestExecutor_Execute(t *testing.T) {
	querier := new(MockQuerier)
	querier.On("Query", mock.Anything, mock.MatchedBy(func(node *binary.Node) bool {
		query := binary.GetChild(node, "query")
		return node.Attr("id") == "tag-42" &&
			node.Attr("xmlns") == Namespace &&
			query != nil &&
			query.Attr("query_id") == "6620195908089573"
	})).Return(resultNode(`{"data":{"xwa2_newsletter_subscribed":[]},"errors":[]}`), nil).Once()

	exec := NewExecutor(querier, WithTagGenerator(fixedTags("tag-42")))
	payload, err := exec.Execute(context.Background(), "6620195908089573", Variables{"newsletter_id": "1@newsletter"}, "xwa2_newsletter_subscribed")

	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(payload))
	querier.AssertExpectations(t)
}

func TestExecutor_Execute_RemoteError(t *testing.T) {
	querier := new(MockQuerier)
	querier.On("Query", mock.Anything, mock.Anything).
		Return(resultNode(`{"errors":[{"message":"not found","extensions":{"error_code":404}}]}`), nil).Once()

	exec := NewExecutor(querier)
	_, err := exec.Execute(context.Background(), "1", nil, "xwa2_newsletter")

	var remoteErr *RemoteProtocolError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "not found", remoteErr.Message)
	assert.Equal(t, 404, remoteErr.Code)
	querier.AssertNumberOfCalls(t, "Query", 1)
}

func TestExecutor_Execute_TransportError(t *testing.T) {
	transportErr := errors.New("connection closed")
	querier := new(MockQuerier)
	querier.On("Query", mock.Anything, mock.Anything).Return(nil, transportErr).Once()

	exec := NewExecutor(querier)
	_, err := exec.Execute(context.Background(), "1", nil, "")

	assert.ErrorIs(t, err, transportErr)
	// no retries at this layer
	querier.AssertNumberOfCalls(t, "Query", 1)
}

func TestExecutor_Execute_MissingResult(t *testing.T) {
	querier := new(MockQuerier)
	querier.On("Query", mock.Anything, mock.Anything).Return(&binary.Node{Tag: "iq"}, nil).Once()

	exec := NewExecutor(querier)
	_, err := exec.Execute(context.Background(), "1", nil, "xwa2_newsletter")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestExecuteInto(t *testing.T) {
	querier := QuerierFunc(func(ctx context.Context, node *binary.Node) (*binary.Node, error) {
		return resultNode(`{"data":{"xwa2_newsletter_admin":{"admin_count":5}}}`), nil
	})

	type adminCount struct {
		AdminCount int `json:"admin_count"`
	}

	out, err := ExecuteInto[adminCount](context.Background(), NewExecutor(querier), "7130823597031706", nil, "xwa2_newsletter_admin")
	require.NoError(t, err)
	assert.Equal(t, 5, out.AdminCount)

	_, err = ExecuteInto[[]string](context.Background(), NewExecutor(querier), "7130823597031706", nil, "xwa2_newsletter_admin")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestUUIDTagGenerator_Unique(t *testing.T) {
	tags := NewUUIDTagGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tag := tags.GenerateMessageTag()
		_, dup := seen[tag]
		require.False(t, dup)
		seen[tag] = struct{}{}
	}
}

func TestRateLimitedQuerier(t *testing.T) {
	var calls int
	inner := QuerierFunc(func(ctx context.Context, node *binary.Node) (*binary.Node, error) {
		calls++
		return node, nil
	})
	limited := NewRateLimitedQuerier(inner, 1)

	_, err := limited.Query(context.Background(), &binary.Node{Tag: "iq"})
	require.NoError(t, err)

	// the bucket is empty now, so the next wait cannot finish before the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Query(ctx, &binary.Node{Tag: "iq"})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_Execute_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	querier := new(MockQuerier)
	querier.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("socket closed")).Once()

	exec := NewExecutor(querier,
		WithTagGenerator(fixedTags("tag-7")),
		WithLogger(observability.NewZapLogger(zap.New(core))),
	)
	_, err := exec.Execute(context.Background(), "123", nil, "")
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "sending mex query to s.whatsapp.net", entries[0].Message)
	assert.Equal(t, "tag-7", entries[0].ContextMap()["tag"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "socket closed", entries[1].ContextMap()[observability.ErrorLogField])
}
