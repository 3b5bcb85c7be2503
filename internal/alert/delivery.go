package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebioscore/platform/internal/shared/config"
	"github.com/ebioscore/platform/internal/shared/metrics"
	"go.uber.org/zap"
)

// Delivery statuses
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Provider pushes an alert to one destination (pager, SMS gateway,
// ward display board).
type Provider interface {
	Name() string
	Deliver(ctx context.Context, d *Delivery) error
}

// Delivery is one attempt to notify staff about an alert
type Delivery struct {
	Alert    PatientAlert `json:"alert"`
	Channel  string       `json:"channel"`
	Status   string       `json:"status"`
	Attempts int          `json:"attempts"`
	LastErr  string       `json:"lastError,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// DeliveryStats counts delivery outcomes per severity
type DeliveryStats struct {
	Submitted  int64            `json:"submitted"`
	Sent       int64            `json:"sent"`
	Failed     int64            `json:"failed"`
	BySeverity map[string]int64 `json:"by_severity"`
}

// DeliveryService fans out critical alerts to registered providers
// through a fixed worker pool. Failed deliveries are retried with a
// delay until the attempt budget runs out.
type DeliveryService struct {
	providers map[string]Provider
	log       *zap.Logger

	mu    sync.Mutex
	stats DeliveryStats

	deliveryCh chan *Delivery
	workers    int

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	retryAttempts int
	retryDelay    time.Duration
}

// NewDeliveryService creates a delivery service with no providers
// registered yet
func NewDeliveryService(cfg config.AlertsConfig, log *zap.Logger) *DeliveryService {
	return &DeliveryService{
		providers:     make(map[string]Provider),
		log:           log,
		stats:         DeliveryStats{BySeverity: make(map[string]int64)},
		deliveryCh:    make(chan *Delivery, cfg.BufferSize),
		workers:       cfg.Workers,
		stopCh:        make(chan struct{}),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// Register adds a provider for the named channel
func (s *DeliveryService) Register(channel string, p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[channel] = p
}

// Start launches the worker pool
func (s *DeliveryService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("delivery service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.log.Info("alert delivery service started", zap.Int("workers", s.workers))
	return nil
}

// Stop drains the workers and waits for them to exit
func (s *DeliveryService) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("delivery service not started")
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Submit queues an alert for delivery on every registered channel.
// A full buffer drops the delivery rather than blocking the caller.
func (s *DeliveryService) Submit(alert PatientAlert) error {
	s.mu.Lock()
	channels := make([]string, 0, len(s.providers))
	for ch := range s.providers {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	if len(channels) == 0 {
		return fmt.Errorf("no delivery providers registered")
	}

	for _, ch := range channels {
		d := &Delivery{
			Alert:     alert,
			Channel:   ch,
			Status:    DeliveryPending,
			CreatedAt: time.Now(),
		}

		select {
		case s.deliveryCh <- d:
			s.mu.Lock()
			s.stats.Submitted++
			s.mu.Unlock()
		default:
			s.log.Warn("alert delivery buffer full, dropping",
				zap.String("alert_id", alert.AlertID.String()),
				zap.String("channel", ch))
			return fmt.Errorf("delivery buffer full")
		}
	}

	return nil
}

func (s *DeliveryService) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case d := <-s.deliveryCh:
			s.process(ctx, d)
		}
	}
}

func (s *DeliveryService) process(ctx context.Context, d *Delivery) {
	s.mu.Lock()
	provider := s.providers[d.Channel]
	s.mu.Unlock()

	var err error
	if provider == nil {
		err = fmt.Errorf("no provider for channel %s", d.Channel)
	} else {
		err = provider.Deliver(ctx, d)
	}

	d.Attempts++

	if err == nil {
		now := time.Now()
		d.SentAt = &now
		d.Status = DeliverySent

		s.mu.Lock()
		s.stats.Sent++
		s.stats.BySeverity[d.Alert.Severity]++
		s.mu.Unlock()

		metrics.RecordAlertDelivered(d.Alert.Severity, DeliverySent)
		return
	}

	d.LastErr = err.Error()

	if d.Attempts >= s.retryAttempts {
		d.Status = DeliveryFailed

		s.mu.Lock()
		s.stats.Failed++
		s.mu.Unlock()

		metrics.RecordAlertDelivered(d.Alert.Severity, DeliveryFailed)
		s.log.Error("alert delivery failed",
			zap.String("alert_id", d.Alert.AlertID.String()),
			zap.String("channel", d.Channel),
			zap.Int("attempts", d.Attempts),
			zap.Error(err))
		return
	}

	s.log.Warn("alert delivery attempt failed, retrying",
		zap.String("alert_id", d.Alert.AlertID.String()),
		zap.String("channel", d.Channel),
		zap.Int("attempt", d.Attempts),
		zap.Error(err))

	go func() {
		select {
		case <-time.After(s.retryDelay):
		case <-s.stopCh:
			return
		}
		select {
		case s.deliveryCh <- d:
		default:
		}
	}()
}

// Stats returns a snapshot of delivery counters
func (s *DeliveryService) Stats() DeliveryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := DeliveryStats{
		Submitted:  s.stats.Submitted,
		Sent:       s.stats.Sent,
		Failed:     s.stats.Failed,
		BySeverity: make(map[string]int64, len(s.stats.BySeverity)),
	}
	for k, v := range s.stats.BySeverity {
		snapshot.BySeverity[k] = v
	}
	return snapshot
}

// LogProvider writes deliveries to the application log. It backs the
// default channel when no external gateway is configured.
type LogProvider struct {
	log *zap.Logger
}

// NewLogProvider creates a log-backed delivery provider
func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log}
}

// Name identifies the provider
func (p *LogProvider) Name() string { return "log" }

// Deliver writes the alert to the log
func (p *LogProvider) Deliver(_ context.Context, d *Delivery) error {
	p.log.Info("patient alert",
		zap.String("alert_id", d.Alert.AlertID.String()),
		zap.Int64("patient_id", d.Alert.PatientID),
		zap.String("severity", d.Alert.Severity),
		zap.String("title", d.Alert.Title))
	return nil
}
