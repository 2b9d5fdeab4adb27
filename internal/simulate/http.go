package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/arsteady/pkg/logger"
)

// Retry configuration constants.
const (
	maxAttempts    = 8
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// errRejected reports a frame the service refused outright.
var errRejected = errors.New("frame rejected")

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body. A nil body sends no payload.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes the body of a GET request into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// submitScripts posts every script. Frames of one target are posted in
// order; targets run concurrently on config.Workers goroutines.
func submitScripts(ctx context.Context, config *Config, scripts []Script, stats *Stats) error {
	logger.Get().Info(ctx, "submitting frames",
		logger.Int("targets", len(scripts)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/frames"

	counters := &submitCounters{}

	scriptChan := make(chan Script)
	errs := make(chan error, len(scripts))
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for script := range scriptChan {
				if err := submitScript(ctx, client, url, config, script, counters); err != nil {
					errs <- fmt.Errorf("target %d: %w", script.Target, err)
					continue
				}
				if config.Verbose {
					logger.Get().Debug(ctx, "target submitted",
						logger.Int("target", script.Target),
						logger.Int("frames", len(script.Frames)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(scriptChan)
		for _, script := range scripts {
			select {
			case <-ctx.Done():
				return
			case scriptChan <- script:
			}
		}
	}()

	wg.Wait()
	close(errs)

	stats.FramesSubmitted = int(counters.submitted.Load())
	stats.FramesAccepted = int(counters.accepted.Load())
	stats.FramesDuplicate = int(counters.duplicate.Load())
	stats.FramesRetried = int(counters.retried.Load())
	stats.FramesFailed = int(counters.failed.Load())

	logger.Get().Info(ctx, "frame submission completed",
		logger.Int("accepted", stats.FramesAccepted),
		logger.Int("duplicate", stats.FramesDuplicate),
		logger.Int("retried", stats.FramesRetried),
		logger.Int("failed", stats.FramesFailed),
	)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	if err := ctx.Err(); err != nil {
		all = append(all, err)
	}
	return errors.Join(all...)
}

type submitCounters struct {
	submitted atomic.Int64
	accepted  atomic.Int64
	duplicate atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// submitScript posts the frames of one script in order. A sampled share of
// frames is delivered twice to exercise deduplication; the second delivery
// must be acknowledged as a duplicate.
func submitScript(ctx context.Context, client *HTTPClient, url string, config *Config, script Script, c *submitCounters) error {
	rng := rand.New(rand.NewPCG(config.Seed, uint64(script.Target)<<32|1))
	for _, frame := range script.Frames {
		deliveries := 1
		if rng.Float64() < config.DuplicateRatio {
			deliveries = 2
		}
		for d := 0; d < deliveries; d++ {
			status, retries, err := submitFrame(ctx, client, url, frame)
			c.submitted.Add(1)
			c.retried.Add(int64(retries))
			if err != nil {
				c.failed.Add(1)
				return fmt.Errorf("frame %s: %w", frame.EventID, err)
			}
			switch status {
			case http.StatusAccepted:
				c.accepted.Add(1)
			case http.StatusOK:
				c.duplicate.Add(1)
				if d == 0 {
					return fmt.Errorf("frame %s: first delivery reported as duplicate", frame.EventID)
				}
			}
			if d == 1 && status != http.StatusOK {
				return fmt.Errorf("frame %s: redelivery was not deduplicated", frame.EventID)
			}
		}
	}
	return nil
}

// submitFrame posts one frame, retrying while the service reports
// backpressure. It returns the final status and the number of retries.
func submitFrame(ctx context.Context, client *HTTPClient, url string, frame FrameRequest) (int, int, error) { //nolint:gocritic // hugeParam: frames travel by value
	backoff := initialBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := client.Post(ctx, url, frame)
		if err != nil {
			return 0, attempt, err
		}
		var ack AckResponse
		_ = json.NewDecoder(resp.Body).Decode(&ack)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusAccepted, http.StatusOK:
			if (resp.StatusCode == http.StatusOK) != ack.Duplicate {
				return resp.StatusCode, attempt, fmt.Errorf("status %d disagrees with ack %q", resp.StatusCode, ack.Status)
			}
			return resp.StatusCode, attempt, nil
		case http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return 0, attempt, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		default:
			return resp.StatusCode, attempt, fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
		}
	}
	return http.StatusTooManyRequests, maxAttempts, fmt.Errorf("%w: backpressure after %d attempts", errRejected, maxAttempts)
}
