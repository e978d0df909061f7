package spa

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
)

// apiError mirrors the backend's error envelope. The detail field is a
// plain string for domain errors and a list of field errors for 422
// validation failures.
type apiError struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldError struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// errorDetail extracts a human-readable message from an error response
// body, falling back to the raw body when it is not the expected envelope.
func errorDetail(body string) string {
	var envelope apiError
	if err := json.Unmarshal([]byte(body), &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(body)
	}

	var asString string
	if err := json.Unmarshal(envelope.Detail, &asString); err == nil {
		return asString
	}

	var asFields []fieldError
	if err := json.Unmarshal(envelope.Detail, &asFields); err == nil {
		parts := make([]string, 0, len(asFields))
		for _, fe := range asFields {
			loc := make([]string, 0, len(fe.Loc))
			for _, seg := range fe.Loc {
				loc = append(loc, fmt.Sprintf("%v", seg))
			}
			parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(loc, "."), fe.Msg))
		}
		return strings.Join(parts, "; ")
	}

	return strings.TrimSpace(body)
}

// wrapHTTPError attaches the backend's detail message to sentinel, keeping
// sentinel matchable with errors.Is.
func wrapHTTPError(sentinel error, httpErr *httpclient.HTTPError) error {
	detail := errorDetail(httpErr.Body)
	if detail == "" {
		detail = httpErr.Status
	}
	return errors.Wrap(sentinel, detail)
}
