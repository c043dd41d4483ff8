// Package hubsdk is the HTTP client for the content hub items API and the
// artifact.RemoteAccessor adapter built on top of it.
package hubsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"golang.org/x/time/rate"

	"github.com/contenthub/hubsync/internal/version"
)

const (
	retryCount    = 3
	retryInterval = 1 * time.Second
)

// HubSDK is the main client for interacting with the content hub API
type HubSDK struct {
	client *req.Client
	config *Config
	Items  *ItemsAPI
}

// New creates a new HubSDK client
func New(config *Config) (*HubSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	client := req.C().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetCommonRetryCount(retryCount).
		SetCommonRetryFixedInterval(retryInterval).
		SetCommonRetryCondition(shouldRetry).
		SetUserAgent(version.UserAgent()).
		SetCommonHeader(HeaderHubVersion, version.Version).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		OnBeforeRequest(func(_ *req.Client, r *req.Request) error {
			r.SetHeader(HeaderRequestID, uuid.NewString())
			if err := limiter.Wait(r.Context()); err != nil {
				return fmt.Errorf("rate limit: %w", err)
			}
			return nil
		})

	if config.Token != "" {
		client.SetCommonBearerAuthToken(config.Token)
	}

	return &HubSDK{
		client: client,
		config: config,
		Items:  newItemsAPI(client, config.Tenant),
	}, nil
}

// shouldRetry retries transport failures, throttling and gateway errors.
// Conflicts and validation errors are final.
func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if resp == nil || resp.Response == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
