package market

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hlgate/hlgate/internal/pkg/logger"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	ReconnBaseDelay = 1 * time.Second
	ReconnMaxDelay  = 30 * time.Second
	// The venue drops connections that stay silent for a minute.
	PingPeriod     = 30 * time.Second
	DefaultMaxAge  = 5 * time.Second
	writeTimeout   = 5 * time.Second
	readTimeoutPad = 30 * time.Second
)

type quote struct {
	px float64
	at time.Time
}

// MidStream keeps the latest allMids snapshot from the exchange websocket.
// A mid older than maxAge, or any mid while disconnected, is not served.
type MidStream struct {
	url    string
	maxAge time.Duration
	dialer *websocket.Dialer
	now    func() time.Time

	mu        sync.RWMutex
	mids      map[string]quote
	connected bool

	writeMu sync.Mutex
	conn    *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]string `json:"mids"`
}

func NewMidStream(url string, maxAge time.Duration) *MidStream {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MidStream{
		url:    url,
		maxAge: maxAge,
		dialer: websocket.DefaultDialer,
		now:    time.Now,
		mids:   make(map[string]quote),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the connection loop in a background goroutine.
func (s *MidStream) Start() {
	go s.runLoop()
}

// Stop closes the connection and waits for the loop to exit.
func (s *MidStream) Stop() {
	s.cancel()
	s.writeMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.writeMu.Unlock()
	<-s.done
}

func (s *MidStream) Mid(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return 0, false
	}
	q, ok := s.mids[strings.ToUpper(symbol)]
	if !ok || s.now().Sub(q.at) > s.maxAge {
		return 0, false
	}
	return q.px, true
}

func (s *MidStream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *MidStream) runLoop() {
	defer close(s.done)
	delay := ReconnBaseDelay

	for {
		if s.ctx.Err() != nil {
			return
		}

		conn, err := s.connect()
		if err != nil {
			logger.Warn("Mid stream connection failed", "error", err, "retry_in", delay)
			if !s.sleep(delay) {
				return
			}
			delay *= 2
			if delay > ReconnMaxDelay {
				delay = ReconnMaxDelay
			}
			continue
		}

		delay = ReconnBaseDelay
		s.setConnected(true)
		logger.Info("Mid stream connected", "url", s.url)

		s.readLoop(conn)

		s.setConnected(false)
	}
}

func (s *MidStream) connect() (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()

	sub := map[string]any{
		"method":       "subscribe",
		"subscription": map[string]string{"type": "allMids"},
	}
	if err := s.write(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go s.pingLoop(conn)
	return conn, nil
}

func (s *MidStream) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			current := s.conn == conn
			s.writeMu.Unlock()
			if !current {
				return
			}
			if err := s.write(map[string]string{"method": "ping"}); err != nil {
				return
			}
		}
	}
}

func (s *MidStream) write(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

func (s *MidStream) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	readTimeout := PingPeriod + readTimeoutPad

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				logger.Warn("Mid stream read failed", "error", err)
			}
			return
		}
		if err := s.apply(message); err != nil {
			logger.Debug("Ignoring mid stream message", "error", err)
		}
	}
}

// apply folds one websocket frame into the cache. Frames other than
// allMids (pong, subscriptionResponse) are ignored.
func (s *MidStream) apply(message []byte) error {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return err
	}
	if msg.Channel != "allMids" {
		return nil
	}
	var data allMidsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return err
	}

	at := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for sym, raw := range data.Mids {
		px, err := decimal.NewFromString(raw)
		if err != nil || !px.IsPositive() {
			continue
		}
		s.mids[strings.ToUpper(sym)] = quote{px: px.InexactFloat64(), at: at}
	}
	return nil
}

func (s *MidStream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
	if v {
		metrics.StreamConnected.Set(1)
		return
	}
	metrics.StreamConnected.Set(0)
	s.writeMu.Lock()
	s.conn = nil
	s.writeMu.Unlock()
}

func (s *MidStream) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
