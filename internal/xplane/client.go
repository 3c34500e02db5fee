package xplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/version"
)

const (
	// DefaultPort is the X-Plane web API port
	DefaultPort = 8086

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed lookups
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultRedialDelay is the pause between stream reconnect attempts
	DefaultRedialDelay = 2 * time.Second

	// Time allowed to write a message to the stream
	writeWait = 5 * time.Second
)

const (
	kindDataref = "dataref"
	kindCommand = "command"
)

// Client talks to one X-Plane instance. Create it with NewClient, then
// Subscribe and SendCommand from any goroutine. Close stops the stream.
type Client struct {
	// BaseURL is the web API root (e.g., "http://127.0.0.1:8086")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed lookups
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// RedialDelay is the pause before redialling a lost stream
	RedialDelay time.Duration

	reqID atomic.Int64

	// ids caches name lookups, keyed by kind + ":" + name
	idMu sync.Mutex
	ids  map[string]int64

	// mu guards subs, conn and the stream lifecycle. wmu serialises
	// writes; it is always taken after mu.
	mu      sync.Mutex
	wmu     sync.Mutex
	subs    map[int64][]*subscription
	conn    *websocket.Conn
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient creates a client for the simulator at host:port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimSuffix(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		RedialDelay:           DefaultRedialDelay,
		ids:                   make(map[string]int64),
		subs:                  make(map[int64][]*subscription),
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// LookupDataref resolves a dataref name (without index) to its id.
func (c *Client) LookupDataref(ctx context.Context, name string) (int64, error) {
	return c.lookup(ctx, kindDataref, name)
}

// LookupCommand resolves a command name to its id.
func (c *Client) LookupCommand(ctx context.Context, name string) (int64, error) {
	return c.lookup(ctx, kindCommand, name)
}

func (c *Client) lookup(ctx context.Context, kind, name string) (int64, error) {
	key := kind + ":" + name
	c.idMu.Lock()
	id, ok := c.ids[key]
	c.idMu.Unlock()
	if ok {
		return id, nil
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		id, err := c.lookupAttempt(ctx, kind, name)
		if err == nil {
			c.idMu.Lock()
			c.ids[key] = id
			c.idMu.Unlock()
			return id, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return 0, err
		}
		logging.Debug("Lookup failed, retrying",
			zap.String(kind, name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return 0, lastErr
}

type lookupResponse struct {
	Data []struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		ValueType string `json:"value_type"`
	} `json:"data"`
}

func (c *Client) lookupAttempt(ctx context.Context, kind, name string) (int64, error) {
	q := url.Values{"filter[name]": {name}}
	endpoint := fmt.Sprintf("%s/api/v2/%ss?%s", c.BaseURL, kind, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, NewNetworkError("failed to create lookup request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		ce := NewNetworkError("lookup request failed", err)
		ce.Host = c.BaseURL
		return 0, ce
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return 0, NewNotFoundError(kind, name)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, NewNetworkError("failed to read response body", err)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return 0, NewParseError("failed to parse lookup response", err)
	}
	for _, d := range lr.Data {
		if d.Name == name {
			return d.ID, nil
		}
	}
	return 0, NewNotFoundError(kind, name)
}

// Subscribe resolves dataref and starts delivering its value to fn at most
// rateHz times per second. A trailing "[n]" selects one array element.
// fn runs on the client's goroutines and must not block.
func (c *Client) Subscribe(ctx context.Context, dataref string, rateHz float64, fn func(float64)) error {
	src, err := profile.ParseSource(dataref)
	if err != nil {
		return err
	}
	id, err := c.LookupDataref(ctx, src.Dataref)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", dataref, err)
	}

	s := newSubscription(src.Index, rateHz, fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	first := len(c.subs[id]) == 0
	c.subs[id] = append(c.subs[id], s)
	c.startLocked()

	if first && c.conn != nil {
		if err := c.writeLocked(c.conn, subscribeMessage(c.nextReqID(), []int64{id})); err != nil {
			// the reader notices the broken stream and replays on redial
			logging.Warn("Subscribe write failed", zap.String("dataref", dataref), zap.Error(err))
		}
	}
	logging.Debug("Subscribed",
		zap.String("dataref", dataref),
		zap.Int64("id", id),
		zap.Float64("rate_hz", rateHz),
	)
	return nil
}

// SendCommand fires a command once.
func (c *Client) SendCommand(ctx context.Context, name string) error {
	id, err := c.LookupCommand(ctx, name)
	if err != nil {
		return fmt.Errorf("command %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	c.startLocked()
	if c.conn == nil {
		return errNotConnected
	}
	return c.writeLocked(c.conn, commandMessage(c.nextReqID(), id))
}

// Start dials the stream in the background. Subscribe and SendCommand
// call it implicitly.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
}

// Connected reports whether the stream is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close stops the stream and waits for the reader to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.mu.Unlock()

	var err error
	if conn != nil {
		c.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		err = conn.Close()
	}
	if started {
		<-c.done
	}
	return err
}

func (c *Client) nextReqID() int64 {
	return c.reqID.Add(1)
}

func (c *Client) startLocked() {
	if c.started || c.closed {
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Client) writeLocked(conn *websocket.Conn, msg any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return NewNetworkError("stream write failed", err)
	}
	return nil
}

func (c *Client) streamURL() string {
	u := strings.Replace(c.BaseURL, "http", "ws", 1)
	return u + "/api/v2"
}
