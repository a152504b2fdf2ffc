package newsletter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/mex"
)

// Follow subscribes the account to the newsletter.
func (c *Client) Follow(ctx context.Context, jid string) error {
	_, err := c.wmex(ctx, jid, c.ids.Follow, nil, "")
	return err
}

// Unfollow unsubscribes the account from the newsletter.
func (c *Client) Unfollow(ctx context.Context, jid string) error {
	_, err := c.wmex(ctx, jid, c.ids.Unfollow, nil, "")
	return err
}

// Mute silences notifications for the newsletter.
func (c *Client) Mute(ctx context.Context, jid string) error {
	_, err := c.wmex(ctx, jid, c.ids.Mute, nil, "")
	return err
}

// Unmute re-enables notifications for the newsletter.
func (c *Client) Unmute(ctx context.Context, jid string) error {
	_, err := c.wmex(ctx, jid, c.ids.Unmute, nil, "")
	return err
}

// Delete removes a newsletter owned by the account.
func (c *Client) Delete(ctx context.Context, jid string) error {
	_, err := c.wmex(ctx, jid, c.ids.Delete, nil, "")
	return err
}

// ChangeOwner transfers ownership to user.
func (c *Client) ChangeOwner(ctx context.Context, jid, user string) error {
	_, err := c.wmex(ctx, jid, c.ids.ChangeOwner, mex.Variables{"user_id": user}, "")
	return err
}

// Demote removes admin rights from user.
func (c *Client) Demote(ctx context.Context, jid, user string) error {
	_, err := c.wmex(ctx, jid, c.ids.Demote, mex.Variables{"user_id": user}, "")
	return err
}

// AdminCount returns the number of admins of the newsletter.
func (c *Client) AdminCount(ctx context.Context, jid string) (int, error) {
	payload, err := c.wmex(ctx, jid, c.ids.AdminCount, nil, PathAdminCount)
	if err != nil {
		return 0, err
	}
	var admin struct {
		AdminCount lenientInt `json:"admin_count"`
	}
	if err := json.Unmarshal(payload, &admin); err != nil {
		return 0, &mex.MalformedResponseError{Reason: "invalid admin count", Err: err}
	}
	return int(admin.AdminCount), nil
}

// update runs the job mutation with the given updates object.
func (c *Client) update(ctx context.Context, jid string, updates map[string]any) error {
	_, err := c.wmex(ctx, jid, c.ids.JobMutation, mex.Variables{"updates": updates}, "")
	return err
}

// UpdateName renames the newsletter.
func (c *Client) UpdateName(ctx context.Context, jid, name string) error {
	return c.update(ctx, jid, map[string]any{"name": name, "settings": nil})
}

// UpdateDescription changes the newsletter description.
func (c *Client) UpdateDescription(ctx context.Context, jid, description string) error {
	return c.update(ctx, jid, map[string]any{"description": description, "settings": nil})
}

// UpdatePicture sets the newsletter picture. image must already be a
// JPEG sized for profile pictures; it is sent base64 encoded.
func (c *Client) UpdatePicture(ctx context.Context, jid string, image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("newsletter: empty picture")
	}
	return c.update(ctx, jid, map[string]any{
		"picture":  base64.StdEncoding.EncodeToString(image),
		"settings": nil,
	})
}

// RemovePicture clears the newsletter picture.
func (c *Client) RemovePicture(ctx context.Context, jid string) error {
	return c.update(ctx, jid, map[string]any{"picture": "", "settings": nil})
}

// SetReactionMode changes which reactions subscribers may send.
func (c *Client) SetReactionMode(ctx context.Context, jid string, mode ReactionMode) error {
	return c.update(ctx, jid, map[string]any{
		"settings": map[string]any{
			"reaction_codes": map[string]any{"value": mode},
		},
	})
}

// acceptTOS acknowledges the terms notice the server requires before the
// first newsletter can be created.
func (c *Client) acceptTOS(ctx context.Context) error {
	node := &binary.Node{
		Tag: "iq",
		Attrs: binary.Attrs{
			"to":    binary.ServerJID,
			"xmlns": "tos",
			"id":    c.tags.GenerateMessageTag(),
			"type":  "set",
		},
		Children: []*binary.Node{
			{Tag: "notice", Attrs: binary.Attrs{"id": tosNotice, "stage": tosStage}},
		},
	}
	if _, err := c.querier.Query(ctx, node); err != nil {
		return fmt.Errorf("newsletter: accept terms: %w", err)
	}
	return nil
}

// Create creates a newsletter and returns its metadata.
func (c *Client) Create(ctx context.Context, name, description string, mode ReactionMode) (*Metadata, error) {
	if err := c.acceptTOS(ctx); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ReactionsAll
	}

	variables := mex.Variables{
		"input": map[string]any{
			"name":        name,
			"description": description,
			"settings": map[string]any{
				"reaction_codes": map[string]any{
					"value": strings.ToUpper(string(mode)),
				},
			},
		},
	}
	payload, err := c.exec.Execute(ctx, c.ids.Create, variables, PathCreate)
	if err != nil {
		return nil, err
	}
	return MetadataFromPayload(payload)
}

// Metadata looks a newsletter up by jid or invite code. An empty role
// queries as a guest.
func (c *Client) Metadata(ctx context.Context, keyType KeyType, key string, role ViewRole) (*Metadata, error) {
	if role == "" {
		role = defaultViewRole
	}
	variables := mex.Variables{
		"input": map[string]any{
			"key":       key,
			"type":      strings.ToUpper(string(keyType)),
			"view_role": role,
		},
		"fetch_viewer_metadata": true,
		"fetch_full_image":      true,
		"fetch_creation_time":   true,
	}
	payload, err := c.exec.Execute(ctx, c.ids.Metadata, variables, PathNewsletter)
	if err != nil {
		return nil, err
	}
	return MetadataFromPayload(payload)
}

// Subscribed lists the newsletters the account follows.
func (c *Client) Subscribed(ctx context.Context) ([]*Metadata, error) {
	items, err := mex.ExecuteInto[[]json.RawMessage](ctx, c.exec, c.ids.Subscribed, nil, PathSubscribed)
	if err != nil {
		return nil, err
	}
	subscribed := make([]*Metadata, 0, len(items))
	for _, item := range items {
		meta, err := MetadataFromPayload(item)
		if err != nil {
			return nil, err
		}
		subscribed = append(subscribed, meta)
	}
	return subscribed, nil
}
