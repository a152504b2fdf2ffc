// Package mex implements the JSON-over-binary query protocol used by the
// messaging service ("w:mex"). A request carries {"variables": ...} as the
// content of a query node; the response carries a JSON envelope of the form
//
//	{"data": {"<path>": ...}, "errors": [{"message": "...", "extensions": {"error_code": 404}}]}
//
// inside a result node. Executor sends a single query and resolves the
// envelope to the payload under a result path, or to one of
// *RemoteProtocolError, *UnexpectedShapeError or *MalformedResponseError.
//
//	exec := mex.NewExecutor(transport, mex.WithLogger(logger))
//	raw, err := exec.Execute(ctx, "7871414976211147", mex.Variables{"newsletter_id": jid}, "")
package mex
