package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HTTPBus publishes and polls events over the KurrentDB AtomPub HTTP
// API. It is the fallback when the gRPC port is unreachable, which
// happens routinely behind hospital network proxies.
type HTTPBus struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	log      *zap.Logger

	mu            sync.Mutex
	subscriptions map[string]context.CancelFunc
}

// NewHTTPBus creates an HTTP-based event bus and verifies the connection
func NewHTTPBus(ctx context.Context, cfg config.KurrentDBConfig, log *zap.Logger) (*HTTPBus, error) {
	scheme := "https"
	if cfg.Insecure {
		scheme = "http"
	}

	bus := &HTTPBus{
		baseURL:       fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
		username:      cfg.Username,
		password:      cfg.Password,
		client:        &http.Client{Timeout: 30 * time.Second},
		log:           log,
		subscriptions: make(map[string]context.CancelFunc),
	}

	if err := bus.Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to KurrentDB over HTTP: %w", err)
	}
	return bus, nil
}

type wireEvent struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Data      any    `json:"data"`
}

type atomEntry struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	EventNumber int64           `json:"eventNumber"`
	Data        json.RawMessage `json:"data"`
}

type atomFeed struct {
	Entries []atomEntry `json:"entries"`
}

// Publish appends the event to its type stream
func (b *HTTPBus) Publish(ctx context.Context, event Event) error {
	eventID := event.ID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	body, err := json.Marshal([]wireEvent{{
		EventID:   eventID,
		EventType: event.Type,
		Data:      event,
	}})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/streams/%s", b.baseURL, streamFor(event.Type))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.eventstore.events+json")
	req.Header.Set("ES-ExpectedVersion", "-2")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to publish event: status %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}

// Subscribe starts a polling subscription on the platform category
// stream, filtered by event-type pattern.
func (b *HTTPBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	b.mu.Lock()
	if cancel, exists := b.subscriptions[consumerName]; exists {
		cancel()
	}
	subCtx, cancel := context.WithCancel(ctx)
	b.subscriptions[consumerName] = cancel
	b.mu.Unlock()

	go b.poll(subCtx, pattern, handler)
	return nil
}

func (b *HTTPBus) poll(ctx context.Context, pattern string, handler Handler) {
	stream := "$ce-" + streamPrefix
	var position int64

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := b.readStream(ctx, stream, position, 100)
			if err != nil {
				continue
			}

			for _, entry := range entries {
				position = entry.EventNumber + 1

				if strings.HasPrefix(entry.EventType, "$") || !MatchesPattern(entry.EventType, pattern) {
					continue
				}

				event, ok := decodeEntry(entry)
				if !ok {
					continue
				}
				if err := handler(ctx, event); err != nil {
					b.log.Warn("event handler failed",
						zap.String("event_id", event.ID), zap.Error(err))
				}
			}
		}
	}
}

// decodeEntry unwraps the entry payload. With embed=body the data can
// arrive double-encoded as a JSON string.
func decodeEntry(entry atomEntry) (Event, bool) {
	data := bytes.TrimSpace(entry.Data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Event{}, false
		}
		data = []byte(inner)
	}

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, false
	}
	if event.ID == "" {
		event.ID = entry.EventID
	}
	if event.Type == "" {
		event.Type = entry.EventType
	}
	return event, true
}

func (b *HTTPBus) readStream(ctx context.Context, stream string, from int64, count int) ([]atomEntry, error) {
	url := fmt.Sprintf("%s/streams/%s/%d/forward/%d?embed=body", b.baseURL, stream, from, count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.eventstore.atom+json")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("read stream: status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, err
	}

	// AtomPub feeds arrive newest-first; hand them back oldest-first
	entries := make([]atomEntry, 0, len(feed.Entries))
	for i := len(feed.Entries) - 1; i >= 0; i-- {
		entries = append(entries, feed.Entries[i])
	}
	return entries, nil
}

func (b *HTTPBus) authorize(req *http.Request) {
	if b.username != "" && b.password != "" {
		req.SetBasicAuth(b.username, b.password)
	}
}

// Health checks the KurrentDB HTTP endpoint
func (b *HTTPBus) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/info", nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Close cancels all polling subscriptions
func (b *HTTPBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.subscriptions {
		cancel()
	}
	b.subscriptions = make(map[string]context.CancelFunc)
}
