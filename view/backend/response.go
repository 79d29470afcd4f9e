package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alphabill-org/txplanner/view"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
)

const (
	ContentType     = "Content-Type"
	Accept          = "Accept"
	ApplicationJson = "application/json"
	ApplicationCbor = "application/cbor"
)

type (
	ErrorResponse struct {
		Message string `json:"message"`
	}

	// ResponseWriter writes handler results, negotiating the body encoding
	// from the Accept header of the request. Errors are always JSON.
	ResponseWriter struct {
		Log zerolog.Logger
	}

	encodeFunc func(w http.ResponseWriter) interface{ Encode(any) error }
)

var encoders = map[string]encodeFunc{
	ApplicationJson: func(w http.ResponseWriter) interface{ Encode(any) error } { return json.NewEncoder(w) },
	ApplicationCbor: func(w http.ResponseWriter) interface{ Encode(any) error } { return cbor.NewEncoder(w) },
}

// negotiate returns the content type the response is encoded with.
func negotiate(r *http.Request) string {
	if strings.Contains(r.Header.Get(Accept), ApplicationCbor) {
		return ApplicationCbor
	}
	return ApplicationJson
}

func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, r *http.Request, data any) {
	rw.write(w, http.StatusOK, negotiate(r), data)
}

// WriteErrorResponse maps view errors to status codes, unknown errors are
// internal server errors.
func (rw *ResponseWriter) WriteErrorResponse(w http.ResponseWriter, err error) {
	code := http.StatusNotFound
	if !errors.Is(err, view.ErrNotFound) {
		code = http.StatusInternalServerError
		rw.Log.Error().Err(err).Msg("request failed")
	}
	rw.write(w, code, ApplicationJson, ErrorResponse{Message: err.Error()})
}

func (rw *ResponseWriter) InvalidParamResponse(w http.ResponseWriter, name string, err error) {
	rw.write(w, http.StatusBadRequest, ApplicationJson, ErrorResponse{Message: fmt.Sprintf("invalid parameter %q: %s", name, err)})
}

func (rw *ResponseWriter) write(w http.ResponseWriter, code int, contentType string, data any) {
	w.Header().Set(ContentType, contentType)
	w.WriteHeader(code)
	if err := encoders[contentType](w).Encode(data); err != nil {
		rw.Log.Error().Err(err).Str("content-type", contentType).Msg("failed to encode response")
	}
}
