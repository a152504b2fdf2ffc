package newsletter

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/mex"
	"github.com/shaharia-lab/newsletter/observability"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuerier is a mock implementation of the mex.Querier interface
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, node *binary.Node) (*binary.Node, error) {
	args := m.Called(ctx, node)
	if rf, ok := args.Get(0).(func(context.Context, *binary.Node) (*binary.Node, error)); ok {
		return rf(ctx, node)
	}
	var r0 *binary.Node
	if args.Get(0) != nil {
		r0 = args.Get(0).(*binary.Node)
	}
	return r0, args.Error(1)
}

// MockDecrypter is a mock implementation of the Decrypter interface
type MockDecrypter struct {
	mock.Mock
}

func (m *MockDecrypter) DecryptMessageNode(ctx context.Context, node *binary.Node, ownID, ownLinkedID string, sessions SessionRepository, logger observability.Logger) (*DecryptedMessage, error) {
	args := m.Called(ctx, node, ownID, ownLinkedID, sessions, logger)
	if rf, ok := args.Get(0).(func(*binary.Node) (*DecryptedMessage, error)); ok {
		return rf(node)
	}
	var r0 *DecryptedMessage
	if args.Get(0) != nil {
		r0 = args.Get(0).(*DecryptedMessage)
	}
	return r0, args.Error(1)
}

var _ mex.Querier = (*MockQuerier)(nil)
var _ Decrypter = (*MockDecrypter)(nil)

// finalizeCounter counts finalize calls per server id.
type finalizeCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFinalizeCounter() *finalizeCounter {
	return &finalizeCounter{calls: make(map[string]int)}
}

func (f *finalizeCounter) message(serverID string, payload any) *DecryptedMessage {
	return &DecryptedMessage{
		FullMessage: payload,
		Decrypt: func(ctx context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls[serverID]++
			return nil
		},
	}
}

func (f *finalizeCounter) count(serverID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[serverID]
}

type fixedSessions struct{ name string }

func fixedTags(tag string) mex.TagGenerator {
	return mex.TagGeneratorFunc(func() string { return tag })
}

func mexResult(content string) *binary.Node {
	return &binary.Node{
		Tag:      "iq",
		Attrs:    binary.Attrs{"type": "result"},
		Children: []*binary.Node{{Tag: "result", Content: []byte(content)}},
	}
}

// variablesOf decodes the variables sent in a w:mex query node.
func variablesOf(t *testing.T, node *binary.Node) map[string]any {
	t.Helper()
	query := binary.GetChild(node, "query")
	require.NotNil(t, query, "not a w:mex query")
	var envelope struct {
		Variables map[string]any `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(query.Content, &envelope))
	return envelope.Variables
}

func newTestClient(t *testing.T, querier mex.Querier, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(Config{Querier: querier}, append([]Option{WithTagGenerator(fixedTags("tag-1"))}, opts...)...)
	require.NoError(t, err)
	return client
}

func messageNode(serverID string, children ...*binary.Node) *binary.Node {
	return &binary.Node{Tag: "message", Attrs: binary.Attrs{"server_id": serverID}, Children: children}
}

func viewsNode(count string) *binary.Node {
	return &binary.Node{Tag: "views_count", Attrs: binary.Attrs{"count": count}}
}

func reactionsNode(pairs ...string) *binary.Node {
	node := &binary.Node{Tag: "reactions"}
	for i := 0; i+1 < len(pairs); i += 2 {
		node.Children = append(node.Children, &binary.Node{
			Tag:   "reaction",
			Attrs: binary.Attrs{"code": pairs[i], "count": pairs[i+1]},
		})
	}
	return node
}
