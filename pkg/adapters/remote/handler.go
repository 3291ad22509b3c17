package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layer"
)

// Handler serves the protocol by computing layers in process.
// Every writable field of the layer must be present in the request.
func Handler(logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResponse(w, http.StatusBadRequest, Response{ErrorType: ErrorBadRequest, Reason: "malformed request body"})
			return
		}
		fields, err := compute(req)
		if err != nil {
			var rerr *Error
			if !errors.As(err, &rerr) {
				rerr = &Error{Type: ErrorUnknown, Reason: err.Error()}
			}
			logger.Warn("Remote compute rejected", "layer", req.Type, "error_type", rerr.Type, "err", rerr.Reason)
			writeResponse(w, statusFor(rerr.Type), Response{ErrorType: rerr.Type, Reason: rerr.Reason})
			return
		}
		writeResponse(w, http.StatusOK, Response{Success: true, Response: fields})
	})
}

func compute(req Request) (map[string]string, error) {
	l, err := layer.NewFromTag(req.Type)
	if err != nil {
		return nil, &Error{Type: ErrorBadRequest, Reason: err.Error()}
	}
	writable := make(map[string]string)
	for _, id := range l.FieldIDs() {
		if l.IsReadonlyField(id) {
			continue
		}
		v, ok := req.Fields[id]
		if !ok {
			return nil, &Error{Type: ErrorMissingLayerField, Reason: fmt.Sprintf("field %q is required", id)}
		}
		writable[id] = v
	}
	if err := l.SetFields(writable); err != nil {
		if errors.Is(err, domain.ErrCompute) {
			return nil, &Error{Type: ErrorLayerCompute, Reason: err.Error()}
		}
		return nil, &Error{Type: ErrorInvalidField, Reason: err.Error()}
	}
	return layer.ToRecord(l).ValDict, nil
}

func statusFor(errorType string) int {
	switch errorType {
	case ErrorBadRequest, ErrorMissingLayerField, ErrorInvalidField:
		return http.StatusBadRequest
	case ErrorLayerCompute:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
