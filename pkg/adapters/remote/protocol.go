// Package remote speaks the layer-computation protocol: the client posts a
// layer's type and field strings, the server answers with the computed fields.
//
//	request:  {"type": "Add", "fields": {"a": "2", "b": "3"}}
//	success:  {"success": true, "response": {"a": "2", "b": "3", "sum": "5"}}
//	failure:  {"success": false, "error_type": "invalid_field", "reason": "..."}
package remote

import "fmt"

// Error types reported by a computation server.
const (
	ErrorBadRequest        = "bad_request"
	ErrorMissingLayerField = "missing_layer_field"
	ErrorInvalidField      = "invalid_field"
	ErrorLayerCompute      = "layer_compute_error"
	ErrorUnknown           = "unknown_error"
)

// Request is the body posted to the server.
type Request struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

// Response is the body the server answers with.
type Response struct {
	Success   bool              `json:"success"`
	Response  map[string]string `json:"response,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// Error is a failure reported by the server.
type Error struct {
	Type   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Type, e.Reason)
}
