package newsletter

import (
	"context"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/observability"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Reaction is one reaction group on a newsletter message.
type Reaction struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// DecodedItem is one message or update record of a fetch response.
type DecodedItem struct {
	ServerID  string     `json:"server_id,omitempty"`
	From      string     `json:"from,omitempty"`
	Views     int        `json:"views"`
	Reactions []Reaction `json:"reactions"`
	// Message is the finalized decrypted payload, set for DirectMessages only.
	Message any `json:"message,omitempty"`
}

// DecodeItem decodes a single item node. When decrypt is set the node is
// run through the Decrypter, finalized, and the payload stored in Message.
func (c *Client) DecodeItem(ctx context.Context, item *binary.Node, decrypt bool) (DecodedItem, error) {
	decoded := DecodedItem{
		ServerID:  item.Attr("server_id"),
		From:      item.Attr("from"),
		Views:     countAttr(binary.GetChild(item, "views_count")),
		Reactions: decodeReactions(item),
	}
	if !decrypt {
		return decoded, nil
	}

	message, err := c.decryptItem(ctx, item)
	if err != nil {
		return DecodedItem{}, &DecryptError{From: decoded.From, ServerID: decoded.ServerID, Err: err}
	}
	decoded.Message = message
	return decoded, nil
}

// countAttr reads a "count" attribute; negative values are treated as 0.
func countAttr(node *binary.Node) int {
	return max(node.IntAttr("count"), 0)
}

// decodeReactions keeps every <reaction> in order; duplicate codes are not merged.
func decodeReactions(item *binary.Node) []Reaction {
	nodes := binary.GetChildren(binary.GetChild(item, "reactions"), "reaction")
	reactions := make([]Reaction, 0, len(nodes))
	for _, node := range nodes {
		reactions = append(reactions, Reaction{
			Code:  node.Attr("code"),
			Count: countAttr(node),
		})
	}
	return reactions
}

// DecodeItems selects the items of root for variant and decodes them
// concurrently. All decodes run to completion; the first error, if any,
// is returned once every item is done.
func (c *Client) DecodeItems(ctx context.Context, root *binary.Node, variant UpdateVariant) (items []DecodedItem, err error) {
	ctx, span := observability.StartSpan(ctx, "newsletter.DecodeItems")
	defer func() { observability.EndSpan(span, err) }()

	nodes, err := SelectItems(root, variant)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("variant", variant.String()),
		attribute.Int("item_count", len(nodes)),
	)

	decrypt := variant.decryptRequired()
	results := make([]DecodedItem, len(nodes))

	// a plain Group: one failed item must not cancel its siblings
	g := new(errgroup.Group)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, node := range nodes {
		g.Go(func() error {
			decoded, err := c.DecodeItem(ctx, node, decrypt)
			if err != nil {
				c.logger.WithErr(err).WithFields(map[string]interface{}{
					"from":      node.Attr("from"),
					"server_id": node.Attr("server_id"),
				}).Warnf("failed to decode newsletter item %s", node.Attr("server_id"))
				return err
			}
			results[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
