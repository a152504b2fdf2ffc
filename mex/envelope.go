package mex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/xeipuuv/gojsonschema"
)

const (
	// Namespace is the iq xmlns selecting the JSON envelope RPC style.
	Namespace = "w:mex"

	queryTag  = "query"
	resultTag = "result"

	defaultErrorCode = 400
	internalPrefix   = "xwa2_"
)

// QueryID is the opaque identifier selecting the server side query or
// mutation a request invokes.
type QueryID string

// ResultPath names a top level key under the response "data" object.
// The empty path selects the whole data object.
type ResultPath string

// Variables are the JSON-serializable query variables.
type Variables map[string]any

// ServerError is a single entry of the envelope "errors" array.
type ServerError struct {
	Message    string                     `json:"message,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// Code returns extensions.error_code, defaulting to 400 when it is
// missing, zero or not a number.
func (e ServerError) Code() int {
	raw, ok := e.Extensions["error_code"]
	if !ok {
		return defaultErrorCode
	}
	var code json.Number
	if err := json.Unmarshal(raw, &code); err != nil {
		// error_code sent as a quoted number
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return defaultErrorCode
		}
		code = json.Number(s)
	}
	n, err := strconv.ParseFloat(code.String(), 64)
	if err != nil || int(n) == 0 {
		return defaultErrorCode
	}
	return int(n)
}

type requestEnvelope struct {
	Variables Variables `json:"variables"`
}

type responseEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []ServerError   `json:"errors"`
}

const envelopeSchemaJSON = `{
	"type": "object",
	"properties": {
		"data": {"type": ["object", "null"]},
		"errors": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"properties": {
					"message": {"type": ["string", "null"]},
					"extensions": {"type": ["object", "null"]}
				}
			}
		}
	}
}`

var envelopeSchema = mustCompileSchema(envelopeSchemaJSON)

func mustCompileSchema(schema string) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("mex: invalid envelope schema: %v", err))
	}
	return compiled
}

// EncodeVariables renders the request envelope {"variables": ...} as UTF-8 JSON.
func EncodeVariables(variables Variables) ([]byte, error) {
	if variables == nil {
		variables = Variables{}
	}
	payload, err := json.Marshal(requestEnvelope{Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("mex: failed to encode variables: %w", err)
	}
	return payload, nil
}

// NewQueryNode builds the iq node carrying the encoded variables for queryID.
func NewQueryNode(tag, to string, queryID QueryID, variables Variables) (*binary.Node, error) {
	payload, err := EncodeVariables(variables)
	if err != nil {
		return nil, err
	}
	return &binary.Node{
		Tag: "iq",
		Attrs: binary.Attrs{
			"id":    tag,
			"type":  "get",
			"to":    to,
			"xmlns": Namespace,
		},
		Children: []*binary.Node{
			{
				Tag:     queryTag,
				Attrs:   binary.Attrs{"query_id": string(queryID)},
				Content: payload,
			},
		},
	}, nil
}

// DecodeResponse locates the result node of a w:mex response and decodes
// its envelope. See Decode.
func DecodeResponse(response *binary.Node, path ResultPath) (json.RawMessage, error) {
	result := binary.GetChild(response, resultTag)
	if result == nil {
		return nil, &MalformedResponseError{Reason: "missing result node"}
	}
	if len(result.Content) == 0 {
		return nil, &MalformedResponseError{Reason: "empty result node"}
	}
	return Decode(result.Content, path)
}

// Decode unwraps a JSON response envelope. Server reported errors become a
// *RemoteProtocolError; a strictly absent data[path] becomes an
// *UnexpectedShapeError. Present values are returned unmodified, including
// null, false, 0 and "".
func Decode(content []byte, path ResultPath) (json.RawMessage, error) {
	validation, err := envelopeSchema.Validate(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	if !validation.Valid() {
		reasons := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &MalformedResponseError{Reason: strings.Join(reasons, "; ")}
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid envelope", Err: err}
	}

	if len(envelope.Errors) > 0 {
		return nil, newRemoteProtocolError(envelope.Errors)
	}

	if path == "" {
		if envelope.Data == nil {
			return nil, &UnexpectedShapeError{}
		}
		return envelope.Data, nil
	}

	var data map[string]json.RawMessage
	if envelope.Data != nil && !bytes.Equal(envelope.Data, []byte("null")) {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, &MalformedResponseError{Reason: "invalid data object", Err: err}
		}
	}
	value, ok := data[string(path)]
	if !ok {
		return nil, &UnexpectedShapeError{Path: path, Action: actionFromPath(path)}
	}
	return value, nil
}

func newRemoteProtocolError(serverErrors []ServerError) *RemoteProtocolError {
	messages := make([]string, 0, len(serverErrors))
	for _, e := range serverErrors {
		if e.Message == "" {
			messages = append(messages, "Unknown error")
			continue
		}
		messages = append(messages, e.Message)
	}
	first := serverErrors[0]
	return &RemoteProtocolError{
		Message: strings.Join(messages, ", "),
		Code:    first.Code(),
		Detail:  first,
		Errors:  serverErrors,
	}
}

// actionFromPath turns "xwa2_newsletter_subscribed" into "newsletter subscribed".
func actionFromPath(path ResultPath) string {
	action := strings.TrimPrefix(string(path), internalPrefix)
	return strings.ReplaceAll(action, "_", " ")
}
