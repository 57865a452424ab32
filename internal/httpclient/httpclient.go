package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/seolens/linkscope/internal/circuitbreaker"
)

// Default returns the tuned client used for all provider fetches.
// Every request carries an overall 15s deadline; slow index queries
// get their own context timeout on top.
func Default() *http.Client {
	tr := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: false},
		DisableCompression:    false,
		MaxIdleConns:          1024,
		MaxConnsPerHost:       128,
		MaxIdleConnsPerHost:   64,
		ResponseHeaderTimeout: 10 * time.Second,
		IdleConnTimeout:       30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   15 * time.Second,
	}
}

// ResilientClient wraps http.Client with a per-host circuit breaker so
// one failing source site cannot absorb a whole collection run.
type ResilientClient struct {
	client      *http.Client
	ua          string
	hostBreaker *circuitbreaker.HostBreaker
}

// NewResilientClient creates the breaker-protected client. A nil inner
// client uses Default().
func NewResilientClient(client *http.Client, ua string) *ResilientClient {
	if client == nil {
		client = Default()
	}

	config := &circuitbreaker.Config{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		Threshold:    5,
		FailureRatio: 0.6,
	}

	return &ResilientClient{
		client:      client,
		ua:          ua,
		hostBreaker: circuitbreaker.NewHostBreaker(config),
	}
}

// Do executes a request under the breaker of its host. 5xx responses
// count as failures; their body is drained and closed here since the
// caller only sees the error.
func (c *ResilientClient) Do(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if host == "" {
		host = req.URL.Hostname()
	}
	if req.Header.Get("User-Agent") == "" && c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	var resp *http.Response
	err := c.hostBreaker.Execute(host, func() error {
		var err error
		resp, err = c.client.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return nil
	})
	if err != nil {
		if resp != nil {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// Get performs a GET with context under the breaker.
func (c *ResilientClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// HTTPError represents a non-success HTTP response.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return e.Status
}

// StatusCode returns the status code carried by err, or 0.
func StatusCode(err error) int {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode
	}
	return 0
}
