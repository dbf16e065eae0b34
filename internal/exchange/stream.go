package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the exchange's CLOB market data websocket.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
	backoffFactor  = 2.0
)

// Websocket event types carrying usable prices.
const (
	eventTypeBook        = "book"
	eventTypePriceChange = "price_change"
	eventTypeLastTrade   = "last_trade_price"
)

// subscribeMessage asks the feed for updates on a set of token IDs.
type subscribeMessage struct {
	AssetsIDs []string `json:"assets_ids"`
	Type      string   `json:"type,omitempty"`
}

// streamMessage is one decoded websocket frame entry.
type streamMessage struct {
	EventType      string        `json:"event_type"`
	AssetID        string        `json:"asset_id,omitempty"`
	LastTradePrice string        `json:"last_trade_price,omitempty"`
	Asks           []priceLevel  `json:"asks,omitempty"`
	PriceChanges   []priceChange `json:"price_changes,omitempty"`
}

type priceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type priceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	BestAsk string `json:"best_ask"`
}

// tick is the latest usable price seen for one token.
type tick struct {
	price float64
	at    time.Time
}

// Stream maintains a live price snapshot per subscribed token. A dropped
// connection reconnects with exponential backoff and re-subscribes every
// tracked token.
type Stream struct {
	url    string
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	tokens    map[string]bool
	prices    map[string]tick
}

// NewStream creates a websocket price stream. Prices flow only after
// Connect.
func NewStream(logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		url:    DefaultStreamURL,
		logger: logger,
		now:    time.Now,
		tokens: make(map[string]bool),
		prices: make(map[string]tick),
	}
}

// WithURL sets a custom websocket URL.
func (s *Stream) WithURL(url string) *Stream {
	s.url = url
	return s
}

// Connect dials the feed and starts the read loop. Reconnection after a
// read failure is automatic; Connect itself retries with backoff until ctx
// is cancelled.
func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return s.connectWithBackoff(ctx)
}

func (s *Stream) connectWithBackoff(ctx context.Context) error {
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.connected = true
			resub := make([]string, 0, len(s.tokens))
			for id := range s.tokens {
				resub = append(resub, id)
			}
			s.mu.Unlock()

			if len(resub) > 0 {
				if err := s.sendSubscribe(resub); err != nil {
					s.logger.Warn("exchange stream resubscribe failed", "error", err)
				}
			}

			go s.readLoop(ctx)
			return nil
		}

		s.logger.Warn("exchange stream dial failed",
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// Track adds token IDs to the subscription set and pushes the updated set
// to the feed. Tokens accumulate across scans so a reconnect can restore
// them all.
func (s *Stream) Track(tokenIDs []string) error {
	s.mu.Lock()
	added := false
	for _, id := range tokenIDs {
		if id != "" && !s.tokens[id] {
			s.tokens[id] = true
			added = true
		}
	}
	all := make([]string, 0, len(s.tokens))
	for id := range s.tokens {
		all = append(all, id)
	}
	connected := s.connected
	s.mu.Unlock()

	if !added || !connected {
		return nil
	}
	return s.sendSubscribe(all)
}

func (s *Stream) sendSubscribe(tokenIDs []string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(subscribeMessage{AssetsIDs: tokenIDs})
	if err != nil {
		return fmt.Errorf("marshaling subscribe message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing subscribe message: %w", err)
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("exchange stream closed")
				return
			}

			s.logger.Warn("exchange stream read failed, reconnecting", "error", err)
			go func() {
				if err := s.connectWithBackoff(ctx); err != nil {
					s.logger.Error("exchange stream reconnect failed", "error", err)
				}
			}()
			return
		}

		msgs, err := parseStream(data)
		if err != nil {
			s.logger.Debug("unparseable stream payload", "error", err)
			continue
		}
		s.apply(msgs, s.now())
	}
}

// apply folds decoded messages into the price snapshot. Price precedence
// per message: an explicit last trade, then the best ask a change reports,
// then the change's own level, then the lowest ask of a book snapshot.
func (s *Stream) apply(msgs []streamMessage, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		switch m.EventType {
		case eventTypeLastTrade:
			s.record(m.AssetID, m.LastTradePrice, at)
		case eventTypePriceChange:
			for _, ch := range m.PriceChanges {
				if !s.record(ch.AssetID, ch.BestAsk, at) {
					s.record(ch.AssetID, ch.Price, at)
				}
			}
		case eventTypeBook:
			s.record(m.AssetID, lowestAsk(m.Asks), at)
		}
	}
}

// record parses and stores one price, reporting whether it was usable.
// Streamed prices are probabilities and must sit strictly inside (0, 1).
// Caller holds mu.
func (s *Stream) record(assetID, raw string, at time.Time) bool {
	if assetID == "" || raw == "" {
		return false
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil || p <= 0 || p >= 1 {
		return false
	}
	s.prices[assetID] = tick{price: p, at: at}
	return true
}

// Price returns the latest streamed price for a token and when it arrived.
func (s *Stream) Price(tokenID string) (float64, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.prices[tokenID]
	if !ok {
		return 0, time.Time{}, false
	}
	return t.price, t.at, true
}

// IsConnected reports whether the stream currently holds a live connection.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Close closes the websocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// parseStream decodes a websocket payload, which arrives either as a JSON
// array of messages or as a single object.
func parseStream(data []byte) ([]streamMessage, error) {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var msgs []streamMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parsing stream payload: %w", err)
		}
		return msgs, nil
	}

	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing stream payload: %w", err)
	}
	return []streamMessage{msg}, nil
}

// lowestAsk returns the cheapest ask level, the executable buy price for a
// book snapshot. Empty when no level parses.
func lowestAsk(asks []priceLevel) string {
	best := ""
	bestVal := 0.0
	for _, l := range asks {
		v, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			continue
		}
		if best == "" || v < bestVal {
			best, bestVal = l.Price, v
		}
	}
	return best
}
