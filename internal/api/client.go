package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Capability is the tri-state server-side min_ts filter support flag.
type Capability int32

const (
	CapabilityUnknown Capability = iota
	CapabilitySupported
	CapabilityUnsupported
)

func (c Capability) String() string {
	switch c {
	case CapabilitySupported:
		return "supported"
	case CapabilityUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Client provides access to the upstream trade feed with host failover.
type Client struct {
	hosts      []string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	pinned string     // empty until the first successful probe
	minTS  Capability // process-wide, moves unknown->supported->unsupported only
}

// Status is a point-in-time view of the client's cached state, exposed for
// health reporting.
type Status struct {
	PinnedHost      string `json:"pinned_host"`
	MinTSCapability string `json:"min_ts_capability"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new trade-feed client over the given host list. The
// first host is the preferred primary; later hosts are failover candidates.
func NewClient(hosts []string, opts ...ClientOption) *Client {
	c := &Client{
		hosts:     hosts,
		userAgent: "whalewatch/1.0",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithAPIKey sets an optional bearer token.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Status returns the pinned host and capability state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		PinnedHost:      c.pinned,
		MinTSCapability: c.minTS.String(),
	}
}

func (c *Client) pinnedHost() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinned
}

func (c *Client) pinHost(h string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = h
}

func (c *Client) capability() Capability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minTS
}

// setCapability applies a capability transition. Each direction happens at
// most once: unknown may become supported or unsupported, supported may
// only degrade to unsupported, and unsupported is terminal.
func (c *Client) setCapability(next Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.minTS == CapabilityUnknown && next != CapabilityUnknown:
		c.minTS = next
	case c.minTS == CapabilitySupported && next == CapabilityUnsupported:
		c.minTS = next
	}
}
