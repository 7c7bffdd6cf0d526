package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"

	"github.com/gorilla/mux"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

var statusForKind = map[domain.Kind]int{
	domain.KindValidation:       http.StatusBadRequest,
	domain.KindConflict:         http.StatusConflict,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindIntegrity:        http.StatusConflict,
	domain.KindInvalidSignature: http.StatusBadRequest,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindInternal:         http.StatusInternalServerError,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeError maps err onto a status by kind. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind[kind]
	message := errorMessage(err)
	if kind == domain.KindInternal {
		logger.FromContext(r.Context()).Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal server error"
	}
	writeErrorCode(w, status, string(kind), message)
}

// errorMessage strips the sentinel prefix, so "validation error: end before
// start" becomes "end before start".
func errorMessage(err error) string {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return te.Error()
	}
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrValidation, domain.ErrConflict, domain.ErrNotFound,
		domain.ErrIntegrity, domain.ErrInvalidSignature, domain.ErrForbidden,
	} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid id %q", mux.Vars(r)["id"])
	}
	return int32(id), nil
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, domain.Validationf("%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.Validationf("%s must be RFC 3339", name)
	}
	return t, nil
}

func queryInt32(r *http.Request, name string, def int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.Validationf("%s must be an integer", name)
	}
	return int32(v), nil
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func actorOrFail(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return actor, ok
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
