package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jonathan/benefit-optimizer/internal/schemas"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// decodeRequest reads the body, checks it against the named schema and decodes it into dst
func decodeRequest(r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("failed to read request body: %v", err)}
	}
	if len(body) > maxBodyBytes {
		return &ErrValidation{Field: "body", Message: "request body too large"}
	}
	if err := schemas.Validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ErrValidation{Field: "body", Message: "Invalid request body: " + err.Error()}
	}
	return nil
}
