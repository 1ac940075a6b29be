package datasource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/models"
)

// PriceStreamClient keeps live win and place prices from a WebSocket market
// feed. Markets are keyed by RaceKey.String().
type PriceStreamClient struct {
	name      models.Provider
	streamURL string
	apiKey    string
	reconnect ReconnectConfig
	logger    *logger.FetchLogger

	mu          sync.RWMutex
	conn        *websocket.Conn
	isConnected bool
	lastMessage time.Time
	subscribed  map[string]struct{}
	markets     map[string]*marketBook

	writeMu sync.Mutex
}

// ReconnectConfig controls reconnection behavior
type ReconnectConfig struct {
	MaxRetries        int // 0 retries forever
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// StreamMessage is a frame received from the price stream
type StreamMessage struct {
	Op            string         `json:"op"`
	MarketChanges []MarketChange `json:"mc,omitempty"`
}

// MarketChange carries runner price changes for one market
type MarketChange struct {
	MarketID  string         `json:"id"`
	Venue     string         `json:"venue"`
	Race      int            `json:"race"`
	FullImage bool           `json:"img"`
	Runners   []RunnerChange `json:"rc"`
}

// RunnerChange is the latest price for one runner
type RunnerChange struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Tab   *int     `json:"tab,omitempty"`
	Win   *float64 `json:"win,omitempty"`
	Place *float64 `json:"plc,omitempty"`
}

// SubscriptionMessage asks the stream for a set of markets
type SubscriptionMessage struct {
	Op        string   `json:"op"`
	MarketIDs []string `json:"marketIds"`
	Heartbeat bool     `json:"heartbeat,omitempty"`
}

type marketBook struct {
	venue   string
	race    int
	order   []string
	runners map[string]RunnerChange
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// NewPriceStreamClient creates a new price stream client
func NewPriceStreamClient(name, streamURL, apiKey string, fl *logger.FetchLogger) *PriceStreamClient {
	if fl == nil {
		fl = logger.NewFetchLogger(logger.Discard())
	}
	return &PriceStreamClient{
		name:       models.Provider(name),
		streamURL:  streamURL,
		apiKey:     apiKey,
		reconnect:  DefaultReconnectConfig(),
		logger:     fl,
		subscribed: make(map[string]struct{}),
		markets:    make(map[string]*marketBook),
	}
}

// Name returns the provider name
func (s *PriceStreamClient) Name() models.Provider {
	return s.name
}

// Run connects and keeps the stream alive until ctx is cancelled, backing off
// between reconnects and re-subscribing every known market on each connect
func (s *PriceStreamClient) Run(ctx context.Context) error {
	backoff := s.reconnect.InitialBackoff
	failures := 0

	for {
		conn, err := s.connect(ctx)
		if err == nil {
			failures = 0
			backoff = s.reconnect.InitialBackoff
			err = s.readMessages(ctx, conn)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if s.reconnect.MaxRetries > 0 && failures > s.reconnect.MaxRetries {
			return fmt.Errorf("price stream %s: giving up after %d attempts: %w", s.name, failures, err)
		}
		s.logger.WithError(err).WithField("backoff", backoff.String()).Warn("Price stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * s.reconnect.BackoffMultiplier)
		if backoff > s.reconnect.MaxBackoff {
			backoff = s.reconnect.MaxBackoff
		}
	}
}

// Subscribe registers interest in the given races. Subscriptions survive
// reconnects.
func (s *PriceStreamClient) Subscribe(keys ...models.RaceKey) error {
	ids := make([]string, 0, len(keys))
	s.mu.Lock()
	for _, k := range keys {
		s.subscribed[k.String()] = struct{}{}
		ids = append(ids, k.String())
	}
	connected := s.isConnected
	s.mu.Unlock()

	if !connected {
		return nil
	}
	return s.sendMessage(SubscriptionMessage{Op: "subscribe", MarketIDs: ids, Heartbeat: true})
}

// FetchPrices returns the latest prices held for a race. A market with no
// prices yet yields no records, not an error.
func (s *PriceStreamClient) FetchPrices(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.markets[key.String()]
	if !ok {
		if !s.isConnected {
			return nil, NewDataSourceError(string(s.name), ErrCodeNetworkError, "no snapshot for "+key.String(), ErrNotConnected)
		}
		return nil, nil
	}

	track := book.venue
	if track == "" {
		track = key.Track
	}
	race := book.race
	if race == 0 {
		race = key.RaceNumber
	}

	records := make([]models.RawRunnerRecord, 0, len(book.order))
	for _, id := range book.order {
		rc := book.runners[id]
		records = append(records, models.RawRunnerRecord{
			Provider:   s.name,
			RunnerID:   rc.ID,
			Track:      track,
			RaceNumber: race,
			HorseName:  rc.Name,
			TabNumber:  rc.Tab,
			WinPrice:   rc.Win,
			PlacePrice: rc.Place,
		})
	}
	return records, nil
}

// IsConnected returns whether the stream is connected
func (s *PriceStreamClient) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected
}

// LastMessageTime returns the time of the last received message
func (s *PriceStreamClient) LastMessageTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessage
}

// Close closes the stream connection
func (s *PriceStreamClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	s.isConnected = false
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *PriceStreamClient) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	conn, _, err := dialer.DialContext(ctx, s.streamURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.lastMessage = time.Now()
	ids := make([]string, 0, len(s.subscribed))
	for id := range s.subscribed {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	s.logger.LogStreamEvent(string(s.name), "connected", len(ids))

	if len(ids) > 0 {
		sort.Strings(ids)
		if err := s.sendMessage(SubscriptionMessage{Op: "subscribe", MarketIDs: ids, Heartbeat: true}); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return conn, nil
}

func (s *PriceStreamClient) readMessages(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.isConnected = false
				s.conn = nil
			}
			s.mu.Unlock()
			s.logger.LogStreamEvent(string(s.name), "disconnected", s.marketCount())
			return err
		}
		s.handle(msg)
	}
}

func (s *PriceStreamClient) handle(msg StreamMessage) {
	s.mu.Lock()
	s.lastMessage = time.Now()
	if msg.Op == "mcm" {
		for _, mc := range msg.MarketChanges {
			s.applyChange(mc)
		}
	}
	n := len(s.markets)
	s.mu.Unlock()

	metrics.UpdateStreamMarkets(string(s.name), n)
}

// applyChange must be called with mu held
func (s *PriceStreamClient) applyChange(mc MarketChange) {
	book, ok := s.markets[mc.MarketID]
	if !ok || mc.FullImage {
		book = &marketBook{runners: make(map[string]RunnerChange)}
		s.markets[mc.MarketID] = book
	}
	if mc.Venue != "" {
		book.venue = mc.Venue
	}
	if mc.Race > 0 {
		book.race = mc.Race
	}

	for _, rc := range mc.Runners {
		prev, seen := book.runners[rc.ID]
		if !seen {
			book.order = append(book.order, rc.ID)
			book.runners[rc.ID] = rc
			continue
		}
		// Deltas only carry what changed
		if rc.Name != "" {
			prev.Name = rc.Name
		}
		if rc.Tab != nil {
			prev.Tab = rc.Tab
		}
		if rc.Win != nil {
			prev.Win = rc.Win
		}
		if rc.Place != nil {
			prev.Place = rc.Place
		}
		book.runners[rc.ID] = prev
	}
}

func (s *PriceStreamClient) marketCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markets)
}

// sendMessage sends a JSON message to the stream
func (s *PriceStreamClient) sendMessage(msg interface{}) error {
	s.mu.RLock()
	if !s.isConnected || s.conn == nil {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	conn := s.conn
	s.mu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}
