package ai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const DefaultRequestTimeout = 60 * time.Second

// NewHTTPClient returns the client every adapter hands to its provider SDK. Retries cover
// 429s and 5xx; the SDKs' own retry loops are turned off where they have one.
func NewHTTPClient(timeout time.Duration, retries int) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = slog.Default()
	rc.HTTPClient.Timeout = timeout
	return rc.StandardClient()
}
