package openai

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay is the initial backoff after a 429. Tests shorten it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// doWithRetry executes req and retries on 429 with exponential backoff.
// Other statuses and transport errors return immediately. When retries run
// out the last 429 response is returned as-is.
func doWithRetry(ctx context.Context, client *http.Client, req *http.Request, body []byte, maxRetries int) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		attemptReq.Body = io.NopCloser(bytes.NewReader(body))
		attemptReq.ContentLength = int64(len(body))

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
