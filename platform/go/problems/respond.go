package problems

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-gacha/platform/go/logging"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// Write renders p as application/problem+json.
func Write(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Respond maps err to a problem, logging errors outside the taxonomy with the request logger.
func Respond(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, err error) {
	p, known := FromError(err)
	if !known {
		logger := platformlogging.FromRequest(r, fallback)
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
	}
	Write(w, p)
}

// WriteJSON renders v as application/json with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched; malformed
// JSON becomes a ValidationError on the "body" field.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return Invalid("body", "malformed JSON body")
	}
	return nil
}
