package newsletter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/observability"
	"go.opentelemetry.io/otel/attribute"
)

// FetchMessages fetches up to count messages of a newsletter addressed by
// jid or invite key, older than the server id after. An after of 0 or less
// sends the default cursor "100"; a literal zero cursor cannot be sent.
// Messages are decrypted and finalized before being returned.
func (c *Client) FetchMessages(ctx context.Context, keyType KeyType, key string, count, after int) (items []DecodedItem, err error) {
	ctx, span := observability.StartSpan(ctx, "newsletter.FetchMessages")
	span.SetAttributes(
		attribute.String("key_type", string(keyType)),
		attribute.Int("count", count),
	)
	defer func() { observability.EndSpan(span, err) }()

	attrs := binary.Attrs{
		"type":  string(keyType),
		"count": strconv.Itoa(count),
		"after": defaultAfter,
	}
	if keyType == KeyInvite {
		attrs["key"] = key
	} else {
		attrs["jid"] = key
	}
	if after > 0 {
		attrs["after"] = strconv.Itoa(after)
	}

	response, err := c.newsletterQuery(ctx, binary.ServerJID, "get", &binary.Node{Tag: "messages", Attrs: attrs})
	if err != nil {
		return nil, err
	}
	return c.DecodeItems(ctx, response, DirectMessages)
}

// FetchUpdates polls view and reaction updates of a newsletter. after and
// since are optional (0 omits them); since is a unix timestamp.
func (c *Client) FetchUpdates(ctx context.Context, jid string, count, after int, since int64) (items []DecodedItem, err error) {
	ctx, span := observability.StartSpan(ctx, "newsletter.FetchUpdates")
	span.SetAttributes(attribute.Int("count", count))
	defer func() { observability.EndSpan(span, err) }()

	attrs := binary.Attrs{"count": strconv.Itoa(count)}
	if after > 0 {
		attrs["after"] = strconv.Itoa(after)
	}
	if since > 0 {
		attrs["since"] = strconv.FormatInt(since, 10)
	}

	response, err := c.newsletterQuery(ctx, jid, "get", &binary.Node{Tag: "message_updates", Attrs: attrs})
	if err != nil {
		return nil, err
	}
	return c.DecodeItems(ctx, response, NestedUpdates)
}

// React sends a reaction to the message with serverID. An empty code
// removes the account's previous reaction.
func (c *Client) React(ctx context.Context, jid, serverID, code string) error {
	attrs := binary.Attrs{
		"to":        jid,
		"type":      "reaction",
		"server_id": serverID,
		"id":        c.tags.GenerateMessageTag(),
	}
	reaction := &binary.Node{Tag: "reaction", Attrs: binary.Attrs{}}
	if code == "" {
		attrs["edit"] = "7"
	} else {
		reaction.Attrs["code"] = code
	}

	node := &binary.Node{Tag: "message", Attrs: attrs, Children: []*binary.Node{reaction}}
	if _, err := c.querier.Query(ctx, node); err != nil {
		return fmt.Errorf("newsletter: react to %s/%s: %w", jid, serverID, err)
	}
	return nil
}

// SubscribeLiveUpdates asks the server to push live updates for the
// newsletter and returns how long the subscription lasts. The duration is
// 0 when the server does not say.
func (c *Client) SubscribeLiveUpdates(ctx context.Context, jid string) (time.Duration, error) {
	response, err := c.newsletterQuery(ctx, jid, "set", &binary.Node{Tag: "live_updates", Attrs: binary.Attrs{}})
	if err != nil {
		return 0, err
	}
	seconds := binary.GetChild(response, "live_updates").IntAttr("duration")
	return time.Duration(seconds) * time.Second, nil
}
