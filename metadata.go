package newsletter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/mex"
)

// MetadataSource selects the response path the newsletter object is read from.
type MetadataSource int

const (
	// MetadataLookup reads responses of the metadata query.
	MetadataLookup MetadataSource = iota + 1
	// MetadataCreate reads responses of the create mutation.
	MetadataCreate
)

func (s MetadataSource) path() (mex.ResultPath, error) {
	switch s {
	case MetadataLookup:
		return PathNewsletter, nil
	case MetadataCreate:
		return PathCreate, nil
	default:
		return "", fmt.Errorf("newsletter: unknown metadata source %d", int(s))
	}
}

// Picture references a newsletter image.
type Picture struct {
	ID         string `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	DirectPath string `json:"direct_path,omitempty"`
}

// ViewerMetadata is the calling account's relation to the newsletter.
type ViewerMetadata struct {
	Mute string `json:"mute,omitempty"`
	Role string `json:"role,omitempty"`
}

// Metadata describes a newsletter.
type Metadata struct {
	ID    string `json:"id,omitempty"`
	State string `json:"state,omitempty"`
	// CreationTime is in epoch seconds, 0 when unknown.
	CreationTime  int64           `json:"creation_time"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Subscribers   int64           `json:"subscribers"`
	// Verification is passed through as sent, whatever its JSON type.
	Verification  json.RawMessage `json:"verification,omitempty"`
	Invite        string          `json:"invite,omitempty"`
	Handle        string          `json:"handle,omitempty"`
	ReactionCodes ReactionMode    `json:"reaction_codes,omitempty"`
	Picture       *Picture        `json:"picture,omitempty"`
	Preview       *Picture        `json:"preview,omitempty"`
	Viewer        *ViewerMetadata `json:"viewer,omitempty"`
}

// lenientInt accepts JSON numbers and numeric strings; anything else is 0.
type lenientInt int64

func (n *lenientInt) UnmarshalJSON(data []byte) error {
	*n = 0
	raw := string(bytes.Trim(data, `"`))
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*n = lenientInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*n = lenientInt(v)
	}
	return nil
}

type textValue struct {
	Text string `json:"text"`
}

type wireMetadata struct {
	ID    string `json:"id"`
	State *struct {
		Type string `json:"type"`
	} `json:"state"`
	ThreadMetadata *struct {
		CreationTime     lenientInt      `json:"creation_time"`
		Name             *textValue      `json:"name"`
		Description      *textValue      `json:"description"`
		SubscribersCount lenientInt      `json:"subscribers_count"`
		Verification     json.RawMessage `json:"verification"`
		Invite           string          `json:"invite"`
		Handle           string          `json:"handle"`
		Picture          *Picture        `json:"picture"`
		Preview          *Picture        `json:"preview"`
		Settings         *struct {
			ReactionCodes *struct {
				Value string `json:"value"`
			} `json:"reaction_codes"`
		} `json:"settings"`
	} `json:"thread_metadata"`
	ViewerMetadata *ViewerMetadata `json:"viewer_metadata"`
}

// ExtractMetadata decodes the w:mex response node of a metadata or create
// query. A valid envelope without the newsletter object yields empty
// Metadata; malformed envelopes and server errors are returned unchanged.
func ExtractMetadata(response *binary.Node, source MetadataSource) (*Metadata, error) {
	path, err := source.path()
	if err != nil {
		return nil, err
	}
	payload, err := mex.DecodeResponse(response, path)
	if errors.Is(err, mex.ErrUnexpectedShape) {
		return &Metadata{}, nil
	}
	if err != nil {
		return nil, err
	}
	return MetadataFromPayload(payload)
}

// MetadataFromPayload maps the newsletter object found under a result path
// to Metadata. Missing optional fields are left empty; a null payload
// yields empty Metadata.
func MetadataFromPayload(payload json.RawMessage) (*Metadata, error) {
	var wire wireMetadata
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, &mex.MalformedResponseError{Reason: "invalid newsletter metadata", Err: err}
	}

	meta := &Metadata{ID: wire.ID, Viewer: wire.ViewerMetadata}
	if wire.State != nil {
		meta.State = wire.State.Type
	}
	if tm := wire.ThreadMetadata; tm != nil {
		meta.CreationTime = int64(tm.CreationTime)
		meta.Subscribers = int64(tm.SubscribersCount)
		if len(tm.Verification) > 0 && !bytes.Equal(tm.Verification, []byte("null")) {
			meta.Verification = tm.Verification
		}
		meta.Invite = tm.Invite
		meta.Handle = tm.Handle
		meta.Picture = tm.Picture
		meta.Preview = tm.Preview
		if tm.Name != nil {
			meta.Name = tm.Name.Text
		}
		if tm.Description != nil {
			meta.Description = tm.Description.Text
		}
		if tm.Settings != nil && tm.Settings.ReactionCodes != nil {
			meta.ReactionCodes = ReactionMode(tm.Settings.ReactionCodes.Value)
		}
	}
	return meta, nil
}
