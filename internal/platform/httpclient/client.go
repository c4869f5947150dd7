package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	randv2 "math/rand"
	"net"
	stdhttp "net/http"
	"net/url"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Client wraps http.Client with logging and retries. All availability
// lookups are idempotent GETs, so every request is safe to retry.
type Client struct {
	hc          *stdhttp.Client
	log         *slog.Logger
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	headers     map[string]string
	retryPolicy func(*stdhttp.Response, error) (time.Duration, bool)
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets request timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables retries with exponential backoff and jitter.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			if c.headers == nil {
				c.headers = make(map[string]string)
			}
			c.headers[k] = v
		}
	}
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithRetryPolicy sets custom retry policy.
func WithRetryPolicy(f func(*stdhttp.Response, error) (time.Duration, bool)) Option {
	return func(c *Client) {
		if f != nil {
			c.retryPolicy = f
		}
	}
}

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxConnsPerHost = 100
	tr.MaxIdleConnsPerHost = 100
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:         slog.Default(),
		retries:     0,
		baseBackoff: 200 * time.Millisecond,
		retryPolicy: retryInfo,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		if ne, ok := ue.Err.(net.Error); ok && ne.Timeout() {
			return true
		}
		if oe, ok := ue.Err.(*net.OpError); ok {
			if se, ok := oe.Err.(*os.SyscallError); ok {
				switch se.Err {
				case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
					syscall.ENETDOWN, syscall.ENETUNREACH, syscall.EPIPE,
					syscall.EHOSTUNREACH, syscall.ETIMEDOUT:
					return true
				}
			}
		}
		var dnsErr *net.DNSError
		if errors.As(ue.Err, &dnsErr) && dnsErr.IsTemporary {
			return true
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// retryInfo determines if request should be retried and returns optional delay.
func retryInfo(resp *stdhttp.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, isRetryableError(err)
	}
	switch resp.StatusCode {
	case 408, 421, 425:
		drainAndClose(resp.Body)
		return 0, true
	case 429, 503:
		delay := retryAfter(resp.Header.Get("Retry-After"))
		drainAndClose(resp.Body)
		return delay, true
	default:
		if resp.StatusCode >= 500 {
			delay := retryAfter(resp.Header.Get("Retry-After"))
			drainAndClose(resp.Body)
			return delay, true
		}
		return 0, false
	}
}

// Do sends HTTP request with context, logging and retries.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries+1; attempt++ {
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		u := r.URL.Redacted()
		st := time.Now()
		resp, err := c.hc.Do(r)
		dur := time.Since(st)
		delay, retry := c.retryPolicy(resp, err)
		if !retry {
			if err != nil {
				c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Any("error", err))
				return nil, err
			}
			c.log.Info("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Int("attempt", attempt))
			return resp, nil
		}
		wait := c.baseBackoff * time.Duration(1<<uint(attempt-1))
		if delay > 0 {
			wait = delay
		} else if wait > 0 {
			wait += time.Duration(randv2.Int63n(int64(wait)))
		}
		if c.maxBackoff > 0 && wait > c.maxBackoff {
			wait = c.maxBackoff
		}
		if err != nil {
			lastErr = err
			c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		} else {
			lastErr = fmt.Errorf("%s %s: unexpected status %d", r.Method, u, resp.StatusCode)
			c.log.Warn("http request status", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Int("status", resp.StatusCode))
		}
		if attempt <= c.retries {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}
