package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// decodeJSON reads a JSON body into v. An empty body decodes to the zero
// value of v rather than an error, since most request bodies here are
// optional (e.g. opening a feed with no explicit key).
func decodeJSON(r *http.Request, v interface{}) error {
	if r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
