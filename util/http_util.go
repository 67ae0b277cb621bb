package util

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

type HTTPFunc func(http.ResponseWriter, *http.Request) *HTTPError

type HTTPError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

func MakeHttpHandlerFunc(f HTTPFunc) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		if httpError := f(w, r); httpError != nil {
			// the status line is already out, nothing more can reach the client.
			_ = WriteJSON(w, httpError.Status, httpError)
		}
	}
}

// WriteJSON sends body with the given status code. An encoding failure is returned after the header was written.
func WriteJSON(w http.ResponseWriter, status int, body any) error {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return errors.Wrap(json.NewEncoder(w).Encode(body), "encoding json response")
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header, falling back to the "Auth" header.
func BearerToken(r *http.Request) string {

	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return r.Header.Get("Auth")
}
