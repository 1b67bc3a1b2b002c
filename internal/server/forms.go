package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
)

const maxBodyBytes = 1 << 20

// decodeRequest fills dst from a JSON body, or from form values when the
// request was sent as a form.
func decodeRequest(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && err != http.ErrNotMultipart {
			return fmt.Errorf("invalid form payload: %w", err)
		}
		if err := decoder.Decode(dst, r.PostForm); err != nil {
			return fmt.Errorf("invalid form payload: %w", err)
		}
		return nil
	}

	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json payload: %w", err)
	}
	return nil
}
