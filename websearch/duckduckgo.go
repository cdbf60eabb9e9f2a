package websearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	DefaultRegion        = "wt-wt"
	DefaultUserAgent     = "Mozilla/5.0 (compatible; graphhelper/1.0)"
	defaultTimeout       = 15 * time.Second

	// DuckDuckGo blocks bursts of automated queries, so stay well below one per second.
	defaultRate  = rate.Limit(0.5)
	defaultBurst = 1

	maxBodyBytes = 2 << 20
)

// DuckDuckGo queries the DuckDuckGo HTML endpoint and scrapes its result list.
// It is safe for concurrent use; requests share one rate limiter.
type DuckDuckGo struct {
	baseURL   string
	region    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ Provider = (*DuckDuckGo)(nil)

// DuckDuckGoOption configures a DuckDuckGo provider.
type DuckDuckGoOption func(*DuckDuckGo) error

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(u string) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		d.baseURL = u
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		if client != nil {
			d.client = client
		}
		return nil
	}
}

// WithRegion sets the DuckDuckGo region code. Default is DefaultRegion (no bias).
func WithRegion(region string) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		d.region = region
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		d.userAgent = ua
		return nil
	}
}

// WithRateLimit sets the client-side request rate in requests per second.
func WithRateLimit(perSecond float64, burst int) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		if perSecond <= 0 || burst < 1 {
			return fmt.Errorf("%w: %v/s burst %d", ErrInvalidRateLimit, perSecond, burst)
		}
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithDuckDuckGoLogger sets a custom logger.
// Default is slog.Default().
func WithDuckDuckGoLogger(logger *slog.Logger) DuckDuckGoOption {
	return func(d *DuckDuckGo) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "duckduckgo")
		return nil
	}
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo(opts ...DuckDuckGoOption) (*DuckDuckGo, error) {
	d := &DuckDuckGo{
		baseURL:   DefaultDuckDuckGoURL,
		region:    DefaultRegion,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(defaultRate, defaultBurst),
		logger:    slog.Default().With("component", "duckduckgo"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Search fetches the result page for text and returns at most n results.
// A 429 or a 202 (DuckDuckGo's throttling page) yields ErrRateLimited.
func (d *DuckDuckGo) Search(ctx context.Context, text string, n int) ([]Result, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The wait would outlast the deadline.
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	form := url.Values{}
	form.Set("q", text)
	if d.region != "" {
		form.Set("kl", d.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusAccepted:
		return nil, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: parse results: %w", ErrSearchFailed, err)
	}

	results := parseResults(doc, n)
	d.logger.Debug("search finished", "query", text, "results", len(results))
	return results, nil
}

// parseResults walks the result page collecting up to n entries. Each
// result sits in an element with class "result"; its title link has class
// "result__a" and its snippet class "result__snippet".
func parseResults(doc *html.Node, n int) []Result {
	var results []Result
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if len(results) >= n {
			return
		}
		if node.Type == html.ElementNode && hasClass(node, "result") && !hasClass(node, "result--ad") {
			if r, ok := parseResult(node); ok {
				results = append(results, r)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResult(node *html.Node) (Result, bool) {
	var r Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a") && r.Title == "":
				r.Title = textContent(n)
				r.URL = resolveHref(attr(n, "href"))
				return
			case hasClass(n, "result__snippet") && r.Snippet == "":
				r.Snippet = textContent(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return r, r.Title != "" || r.Snippet != ""
}

// resolveHref unwraps DuckDuckGo redirect links ("//duckduckgo.com/l/?uddg=...").
func resolveHref(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
