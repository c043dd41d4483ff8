package hubsdk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"

	"github.com/contenthub/hubsync/internal/artifact"
)

var (
	ErrNoServerURL      = errors.New("sdk: server url missing")
	ErrInvalidServerURL = errors.New("sdk: server url must be http(s)://host")
	ErrNoTenant         = errors.New("sdk: tenant missing")
	ErrInvalidRateLimit = errors.New("sdk: rate limit must not be negative")
	ErrMissingRev       = errors.New("sdk: update needs the item's current rev")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeUnauthorized   = "E_UNAUTHORIZED"    // missing or invalid token
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Item errors
	CodeItemNotFound    = "E_ITEM_NOT_FOUND"   // the item id does not exist in the tenant
	CodeRevConflict     = "E_REV_CONFLICT"     // the supplied rev is not the item's current rev
	CodeInvalidDocument = "E_INVALID_DOCUMENT" // the document was rejected by the hub schema
	CodeDraftPending    = "E_DRAFT_PENDING"    // the item has an unpublished draft
)

// APIError is the error body returned by the hub, plus the HTTP status.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// Is maps revision conflicts and missing items onto the artifact sentinels so
// the engine never needs to know about HTTP.
func (e *APIError) Is(target error) bool {
	switch target {
	case artifact.ErrRevConflict:
		return e.Code == CodeRevConflict || e.Status == http.StatusConflict
	case artifact.ErrNotFound:
		return e.Code == CodeItemNotFound || e.Status == http.StatusNotFound
	}
	return false
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeAccessDenied
	case http.StatusNotFound:
		return CodeItemNotFound
	case http.StatusConflict:
		return CodeRevConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	if status >= 500 {
		return CodeInternalError
	}
	return CodeUnknownError
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	// got a response, but api returned an error
	if resp != nil && resp.Response != nil && resp.IsErrorState() {
		apiErr, ok := resp.ErrorResult().(*APIError)
		if !ok || apiErr == nil || apiErr.Code == "" {
			apiErr = &APIError{Code: codeForStatus(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	return nil
}
