package xplane

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/logging"
)

var errClosed = &ClientError{Type: ErrTypeNotConnected, Message: "client closed"}

type request struct {
	ReqID  int64  `json:"req_id"`
	Type   string `json:"type"`
	Params any    `json:"params"`
}

type datarefRef struct {
	ID int64 `json:"id"`
}

type commandActivation struct {
	ID       int64   `json:"id"`
	IsActive bool    `json:"is_active"`
	Duration float64 `json:"duration"`
}

func subscribeMessage(reqID int64, ids []int64) request {
	refs := make([]datarefRef, len(ids))
	for i, id := range ids {
		refs[i] = datarefRef{ID: id}
	}
	return request{
		ReqID:  reqID,
		Type:   "dataref_subscribe_values",
		Params: map[string]any{"datarefs": refs},
	}
}

// commandMessage presses and immediately releases a command.
func commandMessage(reqID, id int64) request {
	return request{
		ReqID:  reqID,
		Type:   "command_set_is_active",
		Params: map[string]any{"commands": []commandActivation{{ID: id, IsActive: true, Duration: 0}}},
	}
}

// inbound covers every message the server sends.
type inbound struct {
	Type         string                     `json:"type"`
	ReqID        int64                      `json:"req_id"`
	Success      *bool                      `json:"success"`
	ErrorCode    string                     `json:"error_code"`
	ErrorMessage string                     `json:"error_message"`
	Data         map[string]json.RawMessage `json:"data"`
}

// run keeps the stream up until ctx is cancelled.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	url := c.streamURL()
	dialer := websocket.Dialer{HandshakeTimeout: DefaultTimeout}
	for {
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err == nil {
			logging.Info("Connected to simulator", zap.String("url", url))
			c.serve(ctx, conn)
		} else if ctx.Err() == nil {
			logging.Debug("Simulator stream unavailable",
				zap.String("url", url),
				zap.String("reason", GetShortErrorMessage(ClassifyNetworkError(err, c.BaseURL))),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.RedialDelay):
		}
	}
}

// serve replays subscriptions on conn and reads it until it fails.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	ids := make([]int64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		if err := c.writeLocked(conn, subscribeMessage(c.nextReqID(), ids)); err != nil {
			logging.Warn("Resubscribe failed", zap.Error(err))
		}
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				logging.Warn("Simulator connection lost", zap.Error(err))
			}
			return
		}
		c.handle(&msg)
	}
}

func (c *Client) handle(msg *inbound) {
	switch msg.Type {
	case "dataref_update_values":
		for key, raw := range msg.Data {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			c.mu.Lock()
			subs := c.subs[id]
			c.mu.Unlock()
			if len(subs) == 0 {
				continue
			}
			value := decodeValue(raw)
			for _, s := range subs {
				s.deliver(value.at(s.index))
			}
		}

	case "result":
		if msg.Success != nil && !*msg.Success {
			logging.Warn("Simulator rejected request",
				zap.Int64("req_id", msg.ReqID),
				zap.String("code", msg.ErrorCode),
				zap.String("message", msg.ErrorMessage),
			)
		}

	default:
		logging.Debug("Ignoring simulator message", zap.String("type", msg.Type))
	}
}

// value is a decoded update: a scalar or an array.
type value struct {
	scalar float64
	array  []float64
}

func decodeValue(raw json.RawMessage) value {
	if isNull(raw) {
		return value{scalar: math.NaN()}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return value{scalar: f}
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]float64, len(arr))
		for i, e := range arr {
			if err := json.Unmarshal(e, &out[i]); err != nil || isNull(e) {
				out[i] = math.NaN()
			}
		}
		return value{array: out}
	}
	// strings and data blobs are not plottable
	return value{scalar: math.NaN()}
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// at returns element index of an array value, or the scalar when index < 0.
func (v value) at(index int) float64 {
	if v.array == nil {
		if index < 0 {
			return v.scalar
		}
		return math.NaN()
	}
	if index < 0 {
		if len(v.array) > 0 {
			return v.array[0]
		}
		return math.NaN()
	}
	if index >= len(v.array) {
		return math.NaN()
	}
	return v.array[index]
}

// subscription throttles delivery to one call per interval. A value that
// arrives early is held and delivered when the interval ends, so the last
// sample is never lost.
type subscription struct {
	index    int
	interval time.Duration
	fn       func(float64)

	mu      sync.Mutex
	last    time.Time
	pending float64
	timer   *time.Timer
}

func newSubscription(index int, rateHz float64, fn func(float64)) *subscription {
	var interval time.Duration
	if rateHz > 0 {
		interval = time.Duration(float64(time.Second) / rateHz)
	}
	return &subscription{index: index, interval: interval, fn: fn}
}

func (s *subscription) deliver(v float64) {
	s.mu.Lock()
	if s.interval == 0 {
		s.mu.Unlock()
		s.fn(v)
		return
	}
	now := time.Now()
	if s.timer == nil && now.Sub(s.last) >= s.interval {
		s.last = now
		s.mu.Unlock()
		s.fn(v)
		return
	}
	s.pending = v
	if s.timer == nil {
		wait := s.interval - now.Sub(s.last)
		s.timer = time.AfterFunc(wait, s.flush)
	}
	s.mu.Unlock()
}

func (s *subscription) flush() {
	s.mu.Lock()
	v := s.pending
	s.timer = nil
	s.last = time.Now()
	s.mu.Unlock()
	s.fn(v)
}
