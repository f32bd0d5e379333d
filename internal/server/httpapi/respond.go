package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/weightlog/weightlog/internal/server/services"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeError renders a service failure as {"detail": message}. Server-side
// failures are logged at warn level, the rest at info.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.StatusOf(err)

	msg := "Internal server error"
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		msg = svcErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn(r.Context(), "request failed", "status", status, "detail", msg, "error", err)
	} else {
		s.logger.Info(r.Context(), "request rejected", "status", status, "detail", msg)
	}

	writeDetail(w, status, msg)
}

// writeInvalid answers 422 for input that could not be decoded or failed
// validation.
func writeInvalid(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		writeDetail(w, http.StatusUnprocessableEntity, "field "+fe.Field()+" failed on the "+fe.Tag()+" rule")
		return
	}
	writeDetail(w, http.StatusUnprocessableEntity, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
