package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	csrfHeader = "X-CSRFToken"

	// DefaultTimeout bounds every request except the chat stream.
	DefaultTimeout = 30 * time.Second

	voicesTTL = 5 * time.Minute
	voicesKey = "voices"
)

// Options configure a Client.
type Options struct {
	BaseURL string
	// Cookie is a Cookie header value ("session=...; remember_token=...").
	Cookie    string
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// Client talks to the tutoring server. It is safe for concurrent use.
type Client struct {
	base   *url.URL
	rest   *resty.Client
	stream *resty.Client
	jar    http.CookieJar
	log    *zap.Logger
	cache  *gocache.Cache

	mu        sync.Mutex
	csrf      string
	csrfTried bool
}

// New builds a client. The chat stream uses a separate transport without an
// overall timeout since replies can take minutes.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "term-tutor"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.Cookie != "" {
		cookies, err := http.ParseCookie(opts.Cookie)
		if err != nil {
			return nil, fmt.Errorf("parse session cookie: %w", err)
		}
		jar.SetCookies(base, cookies)
	}

	c := &Client{
		base:  base,
		jar:   jar,
		log:   log,
		cache: gocache.New(voicesTTL, 2*voicesTTL),
	}
	c.rest = c.newResty(opts).SetTimeout(opts.Timeout)
	c.stream = c.newResty(opts)
	return c, nil
}

func (c *Client) newResty(opts Options) *resty.Client {
	return resty.New().
		SetBaseURL(c.base.String()).
		SetCookieJar(c.jar).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(c.log.Sugar()).
		// The server redirects to the HTML login page for browser routes.
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			c.log.Debug("api request",
				zap.String("method", resp.Request.Method),
				zap.String("url", resp.Request.URL),
				zap.Int("status", resp.StatusCode()),
				zap.Duration("took", resp.Time()))
			return nil
		})
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Cookie returns the current session cookies as a Cookie header value,
// suitable for storing in the config file.
func (c *Client) Cookie() string {
	var parts []string
	for _, ck := range c.jar.Cookies(c.base) {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// csrfToken returns the cached CSRF token, fetching it on first use. The
// JSON API accepts requests without one, so failures are only logged.
func (c *Client) csrfToken(ctx context.Context) string {
	c.mu.Lock()
	tok, tried := c.csrf, c.csrfTried
	c.csrfTried = true
	c.mu.Unlock()
	if tried {
		return tok
	}

	var out struct {
		Token string `json:"csrf_token"`
	}
	resp, err := c.rest.R().SetContext(ctx).SetResult(&out).Get("/api/csrf-token")
	if err != nil || resp.IsError() {
		c.log.Debug("csrf token unavailable", zap.Error(err))
		return ""
	}
	c.mu.Lock()
	c.csrf = out.Token
	c.mu.Unlock()
	return out.Token
}

func (c *Client) dropCSRF() {
	c.mu.Lock()
	c.csrf, c.csrfTried = "", false
	c.mu.Unlock()
}

// do executes a JSON request. body and result may be nil.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	for attempt := 0; ; attempt++ {
		req := c.rest.R().SetContext(ctx).SetError(&errorBody{})
		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}
		if method != http.MethodGet {
			if tok := c.csrfToken(ctx); tok != "" {
				req.SetHeader(csrfHeader, tok)
			}
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		err = checkResponse(resp)
		if err == nil {
			return nil
		}
		// A rotated secret invalidates the cached token; refetch once.
		if attempt == 0 && isCSRFRejection(resp) {
			c.dropCSRF()
			continue
		}
		return err
	}
}

// isCSRFRejection reports a 400 or 403 whose body names the CSRF token.
func isCSRFRejection(resp *resty.Response) bool {
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusForbidden:
		return strings.Contains(string(resp.Body()), "CSRF")
	}
	return false
}

func checkResponse(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= 300 && status < 400 {
		return &Error{Status: http.StatusUnauthorized, Message: "redirected to " + resp.Header().Get("Location")}
	}
	if !resp.IsError() {
		return nil
	}
	e := &Error{Status: status}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		e.Message = body.Error
	}
	return e
}

// Health checks that the server is reachable. It needs no session.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
