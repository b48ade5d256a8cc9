// Package udeploy is the HTTP gateway to the deployment tool's CLI endpoints.
package udeploy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/dnscache"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

var (
	ErrUnavailable = errors.New("deployment tool unavailable")
	ErrRateLimited = errors.New("rate limited by deployment tool")
)

// StatusError is a non-transient HTTP failure from the deployment tool.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Credentials authenticate requests to the deployment tool. Values come from
// the environment at startup and must never be logged or persisted.
type Credentials struct {
	Username string
	Password string
}

type Client struct {
	baseURL        string
	credentials    Credentials
	httpClient     *http.Client
	requestTimeout time.Duration
	maxRetries     int
	baseDelay      time.Duration
	userAgent      string
	logger         applogger.Logger
}

func NewClient(config model.UDeployConfig, credentials Credentials, logger applogger.Logger) *Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if dialErr == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP for %v", host)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if config.InsecureSkipVerify {
		//nolint:gosec // G402: verification is only skipped when the operator asked for it in the config
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		logger.Info("TLS certificate verification disabled for deployment tool requests")
	}

	return &Client{
		baseURL:        strings.TrimSuffix(config.BaseURL, "/"),
		credentials:    credentials,
		httpClient:     &http.Client{Transport: transport},
		requestTimeout: config.RequestTimeout,
		maxRetries:     config.MaxRetries,
		baseDelay:      500 * time.Millisecond,
		userAgent:      "deployaudit/1.0",
		logger:         logger,
	}
}

// DownloadArtifacts streams the component's artifact bundle into destDir and
// returns the path of the written file. The per-attempt timeout covers the
// whole transfer, not just the response header.
func (c *Client) DownloadArtifacts(ctx context.Context, spec model.ComponentSpec, destDir string) (string, error) {
	query := url.Values{}
	query.Set("component", spec.Component)
	query.Set("version", spec.Version)
	query.Set("location", destDir)
	requestURL := c.baseURL + "/cli/version/downloadArtifacts?" + query.Encode()

	var bundlePath string
	err := c.withRetry(ctx, func(attemptCtx context.Context) error {
		path, attemptErr := c.downloadOnce(attemptCtx, requestURL, spec, destDir)
		if attemptErr != nil {
			return attemptErr
		}
		bundlePath = path
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to download artifacts for %v", spec)
	}
	return bundlePath, nil
}

func (c *Client) downloadOnce(ctx context.Context, requestURL string, spec model.ComponentSpec, destDir string) (string, error) {
	resp, err := c.do(ctx, requestURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bundlePath := filepath.Join(destDir, bundleFilename(resp.Header.Get("Content-Disposition"), spec))
	out, err := os.Create(bundlePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create bundle file")
	}
	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return "", errors.Wrap(err, "failed to write bundle file")
	}
	if err = out.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close bundle file")
	}
	c.logger.Debug(fmt.Sprintf("downloaded %v (%v bytes)", filepath.Base(bundlePath), written))
	return bundlePath, nil
}

// VersionProperties fetches the tool's recorded metadata for the component
// version. Duplicate names collapse to the last value seen.
func (c *Client) VersionProperties(ctx context.Context, spec model.ComponentSpec) (model.VersionProperties, error) {
	query := url.Values{}
	query.Set("component", spec.Component)
	query.Set("version", spec.Version)
	requestURL := c.baseURL + "/cli/version/versionProperties?" + query.Encode()

	var body []byte
	err := c.withRetry(ctx, func(attemptCtx context.Context) error {
		resp, attemptErr := c.do(attemptCtx, requestURL)
		if attemptErr != nil {
			return attemptErr
		}
		defer resp.Body.Close()
		body, attemptErr = io.ReadAll(resp.Body)
		return errors.Wrap(attemptErr, "failed to read version properties")
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch version properties for %v", spec)
	}

	var wireProperties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err = json.Unmarshal(body, &wireProperties); err != nil {
		return nil, errors.Wrapf(err, "failed to decode version properties for %v", spec)
	}

	properties := make(model.VersionProperties, len(wireProperties))
	for _, property := range wireProperties {
		properties[property.Name] = property.Value
	}
	return properties, nil
}

// withRetry runs one attempt plus up to maxRetries re-attempts, backing off
// exponentially with jitter. Only rate limiting and server-side failures are
// retried; everything else, including the per-attempt timeout, fails the call.
func (c *Client) withRetry(ctx context.Context, attempt func(ctx context.Context) error) error {
	var lastErr error
	for try := 0; try <= c.maxRetries; try++ {
		if try > 0 {
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(try-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		err := attempt(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
			continue
		}
		return err
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.SetBasicAuth(c.credentials.Username, c.credentials.Password)

	c.logger.Debug("GET " + requestURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		_ = resp.Body.Close()
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		_ = resp.Body.Close()
		return nil, errors.Wrapf(ErrUnavailable, "HTTP %d", resp.StatusCode)
	default:
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: requestURL, Body: string(excerpt)}
	}
}

// bundleFilename derives the local file name for a downloaded bundle from the
// Content-Disposition header, falling back to a component/version derived zip
// name. The result is always a bare file name.
func bundleFilename(contentDisposition string, spec model.ComponentSpec) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
				return r
			default:
				return '-'
			}
		}, s)
	}
	return fmt.Sprintf("%s-%s.zip", sanitize(spec.Component), sanitize(spec.Version))
}
