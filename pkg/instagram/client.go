package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"igunfollow/pkg/config"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/metrics"
	"igunfollow/pkg/ratelimit"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// maxErrorBody caps how much of an error response is read for its message
const maxErrorBody = 4 << 10

// Options configures a Client
type Options struct {
	BaseURL   string
	UserAgent string
	AppID     string
	Timeout   time.Duration
	// PageSize is the number of accounts requested per friendships page
	PageSize int
	// PageDelay is the pause between two friendships pages
	PageDelay time.Duration
	// Limiter throttles every request; nil disables throttling
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	// HTTPClient overrides the default client. Its Jar is replaced by a
	// fresh cookie jar.
	HTTPClient *http.Client
}

// OptionsFromConfig builds client options from the instagram config section
func OptionsFromConfig(cfg *config.InstagramConfig, limiter ratelimit.Limiter, log logger.Logger) Options {
	return Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		AppID:     cfg.AppID,
		Timeout:   cfg.Timeout,
		PageSize:  cfg.PageSize,
		PageDelay: cfg.PageDelay,
		Limiter:   limiter,
		Logger:    log,
	}
}

// Client is a single Instagram web session. It keeps its cookies between
// calls, so one Client should be used per login.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	pageSize   int
	pageDelay  time.Duration
	limiter    ratelimit.Limiter
	logger     logger.Logger

	mu       sync.Mutex
	userID   string
	username string
}

// NewClient creates a new Instagram API client
func NewClient(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	httpClient.Jar = jar

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	appID := opts.AppID
	if appID == "" {
		appID = DefaultAppID
	}

	return &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent":       userAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      appID,
			"X-Requested-With": "XMLHttpRequest",
			"Origin":           baseURL,
			"Referer":          baseURL + "/",
		},
		baseURL:   baseURL,
		pageSize:  opts.PageSize,
		pageDelay: opts.PageDelay,
		limiter:   opts.Limiter,
		logger:    log,
	}, nil
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// csrfToken returns the csrftoken cookie for the base URL, if any
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "csrftoken" {
			return cookie.Value
		}
	}
	return ""
}

// doRequest performs an HTTP request with the session headers, waiting on
// the rate limiter first. operation labels logs and metrics.
func (c *Client) doRequest(req *http.Request, operation string) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set("X-CSRFToken", token)
	}

	if c.limiter != nil && !c.limiter.Allow() {
		logger.LogRateLimit(c.logger, req.URL.Path, 0)
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.InstagramRequestsTotal.WithLabelValues(operation, metrics.StatusClass(status)).Inc()
	metrics.InstagramRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"operation": operation,
			"method":    req.Method,
			"path":      req.URL.Path,
			"error":     err.Error(),
			"duration":  duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, duration)
	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, rawURL, operation string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, target)
}

// postForm submits a form and decodes the JSON response
func (c *Client) postForm(ctx context.Context, rawURL, operation string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, target)
}

func (c *Client) decodeResponse(resp *http.Response, target interface{}) error {
	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if target == nil {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         resp.Request.URL.Path,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// checkResponseStatus turns an error status into a typed error. Instagram
// puts the reason in a JSON "message" field, which is used when present.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var body statusResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = json.Unmarshal(raw, &body)

	errorType := errs.TypeForStatus(resp.StatusCode)
	message := body.Message
	switch message {
	case "checkpoint_required", "challenge_required":
		errorType = errs.ErrorTypeCheckpoint
	case "login_required":
		errorType = errs.ErrorTypeAuth
	case "":
		message = http.StatusText(resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status":  resp.StatusCode,
		"path":    resp.Request.URL.Path,
		"type":    string(errorType),
		"message": message,
	}
	if errorType == errs.ErrorTypeServerError {
		c.logger.ErrorWithFields("Instagram server error", fields)
	} else {
		c.logger.WarnWithFields("Instagram rejected request", fields)
	}

	return errs.New(errorType, resp.StatusCode, "%s", message)
}
