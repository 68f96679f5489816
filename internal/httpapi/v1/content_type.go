package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return false
	}
	return true
}

// readJSON checks the content type and strictly decodes the body into dst.
// It returns the raw body and false after writing an error response.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	if !requireJSON(w, r) {
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, "unreadable body: "+err.Error())
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return nil, false
	}
	return body, true
}
