// Package newsletter is a client for the messaging service's newsletter
// (channel) API. Management operations go through the w:mex JSON envelope
// protocol (see package mex); message history and update polling use
// newsletter iq queries whose binary response trees are decoded into
// DecodedItem values, decrypting direct messages through an injected
// Decrypter.
//
// The client never issues requests on its own: every query, including
// following a newsletter, is a call made by the caller.
package newsletter

import (
	"github.com/shaharia-lab/newsletter/mex"
)

const (
	namespace = "newsletter"
	tosNotice = "20601218"
	tosStage  = "5"

	defaultAfter    = "100"
	defaultViewRole = "GUEST"
)

// Result paths under the w:mex response "data" object.
const (
	PathAdminCount mex.ResultPath = "xwa2_newsletter_admin"
	PathCreate     mex.ResultPath = "xwa2_newsletter_create"
	PathNewsletter mex.ResultPath = "xwa2_newsletter"
	PathSubscribed mex.ResultPath = "xwa2_newsletter_subscribed"
	PathDemote     mex.ResultPath = "xwa2_newsletter_admin_demote"
)

// QueryIDs holds the opaque identifiers of the server side operations.
// The server rotates these from time to time, so they can be overridden
// with WithQueryIDs.
type QueryIDs struct {
	JobMutation mex.QueryID
	Metadata    mex.QueryID
	Unfollow    mex.QueryID
	Follow      mex.QueryID
	Unmute      mex.QueryID
	Mute        mex.QueryID
	Create      mex.QueryID
	AdminCount  mex.QueryID
	ChangeOwner mex.QueryID
	Delete      mex.QueryID
	Demote      mex.QueryID
	Subscribed  mex.QueryID
}

// DefaultQueryIDs are the identifiers known to work at the time of writing.
var DefaultQueryIDs = QueryIDs{
	JobMutation: "7150902998257522",
	Metadata:    "6620195908089573",
	Unfollow:    "7238632346214362",
	Follow:      "7871414976211147",
	Unmute:      "7337137176362961",
	Mute:        "25151904754424642",
	Create:      "6996806640408138",
	AdminCount:  "7130823597031706",
	ChangeOwner: "7341777602580933",
	Delete:      "8316537688363079",
	Demote:      "6551828931592903",
	Subscribed:  "6388546374527196",
}

// withDefaults fills every empty identifier from DefaultQueryIDs.
func (ids QueryIDs) withDefaults() QueryIDs {
	fill := func(v *mex.QueryID, def mex.QueryID) {
		if *v == "" {
			*v = def
		}
	}
	fill(&ids.JobMutation, DefaultQueryIDs.JobMutation)
	fill(&ids.Metadata, DefaultQueryIDs.Metadata)
	fill(&ids.Unfollow, DefaultQueryIDs.Unfollow)
	fill(&ids.Follow, DefaultQueryIDs.Follow)
	fill(&ids.Unmute, DefaultQueryIDs.Unmute)
	fill(&ids.Mute, DefaultQueryIDs.Mute)
	fill(&ids.Create, DefaultQueryIDs.Create)
	fill(&ids.AdminCount, DefaultQueryIDs.AdminCount)
	fill(&ids.ChangeOwner, DefaultQueryIDs.ChangeOwner)
	fill(&ids.Delete, DefaultQueryIDs.Delete)
	fill(&ids.Demote, DefaultQueryIDs.Demote)
	fill(&ids.Subscribed, DefaultQueryIDs.Subscribed)
	return ids
}

// KeyType says how a newsletter is addressed in metadata and message queries.
type KeyType string

const (
	KeyJID    KeyType = "jid"
	KeyInvite KeyType = "invite"
)

// ReactionMode controls which reactions subscribers may send.
type ReactionMode string

const (
	ReactionsAll       ReactionMode = "ALL"
	ReactionsBasic     ReactionMode = "BASIC"
	ReactionsNone      ReactionMode = "NONE"
	ReactionsBlocklist ReactionMode = "BLOCKLIST"
)

// ViewRole is the role the metadata query is evaluated for.
type ViewRole string

const (
	RoleGuest      ViewRole = "GUEST"
	RoleOwner      ViewRole = "OWNER"
	RoleAdmin      ViewRole = "ADMIN"
	RoleSubscriber ViewRole = "SUBSCRIBER"
)
