package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/logging"
)

const (
	// DefaultMaxNotifications is the default in-memory store size.
	DefaultMaxNotifications = 1000
	// DefaultCleanupInterval is how often expired notifications are purged.
	DefaultCleanupInterval = 5 * time.Minute
	// DefaultRateLimitMaxEvents is the default events-per-window limit.
	DefaultRateLimitMaxEvents = 60

	subscriberBuffer = 16
)

// Subscriber receives broadcast notifications until unsubscribed.
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// Notifications returns the subscriber's receive channel.
func (s *Subscriber) Notifications() <-chan *Notification {
	return s.ch
}

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	Debug              bool
	MaxNotifications   int
	CleanupInterval    time.Duration
	RateLimitWindow    time.Duration
	RateLimitMaxEvents int
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications:   DefaultMaxNotifications,
		CleanupInterval:    DefaultCleanupInterval,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: DefaultRateLimitMaxEvents,
	}
}

// Service manages notifications, broadcasts them to subscribers and rate
// limits creation to prevent spam.
type Service struct {
	store         *InMemoryStore
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	rateLimiter   *RateLimiter
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *slog.Logger
}

// NewService creates a new notification service and starts its cleanup
// worker.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	service := &Service{
		store:         NewInMemoryStore(config.MaxNotifications),
		subscribers:   make([]*Subscriber, 0),
		rateLimiter:   NewRateLimiter(config.RateLimitWindow, config.RateLimitMaxEvents),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logging.ForService("notification"),
	}

	service.wg.Add(1)
	go service.cleanupLoop()

	service.logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"cleanup_interval", config.CleanupInterval)

	return service
}

// Stop shuts down the service and closes all subscriber channels.
func (s *Service) Stop() {
	s.cancel()
	s.cleanupTicker.Stop()
	s.wg.Wait()

	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	for _, sub := range s.subscribers {
		sub.cancel()
		close(sub.ch)
	}
	s.subscribers = nil
}

// Create adds a new notification and broadcasts it to subscribers.
func (s *Service) Create(notifType Type, priority Priority, title, message string) (*Notification, error) {
	return s.create(NewNotification(notifType, priority, title, message))
}

// CreateWithComponent adds a notification attributed to a component.
func (s *Service) CreateWithComponent(notifType Type, priority Priority, title, message, component string) (*Notification, error) {
	return s.create(NewNotification(notifType, priority, title, message).WithComponent(component))
}

// create saves a fully built notification and broadcasts it. The
// notification must not be mutated after this point; the store and
// subscribers share the pointer.
func (s *Service) create(notif *Notification) (*Notification, error) {
	if !s.rateLimiter.Allow() {
		return nil, errors.Newf("notification rate limit exceeded").
			Component("notification").
			Category(errors.CategoryState).
			Build()
	}

	if err := s.store.Save(notif); err != nil {
		return nil, err
	}

	s.broadcast(notif)
	return notif, nil
}

// List returns stored notifications matching the filter, newest first.
func (s *Service) List(filter *FilterOptions) ([]*Notification, error) {
	return s.store.List(filter)
}

// Get returns a notification by id.
func (s *Service) Get(id string) (*Notification, error) {
	return s.store.Get(id)
}

// MarkRead marks a notification as read.
func (s *Service) MarkRead(id string) error {
	notif, err := s.store.Get(id)
	if err != nil {
		return err
	}
	notif.Status = StatusRead
	return s.store.Update(notif)
}

// Delete removes a notification.
func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount() (int, error) {
	return s.store.GetUnreadCount()
}

// Subscribe registers a new subscriber for broadcast notifications.
func (s *Service) Subscribe() *Subscriber {
	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, subscriberBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	s.subscribersMu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.subscribersMu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Service) Unsubscribe(sub *Subscriber) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, candidate := range s.subscribers {
		if candidate == sub {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			sub.cancel()
			close(sub.ch)
			return
		}
	}
}

// broadcast sends a notification to every subscriber. Slow subscribers
// with a full buffer are skipped rather than blocked on.
func (s *Service) broadcast(notif *Notification) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, sub := range s.subscribers {
		select {
		case <-sub.ctx.Done():
		case sub.ch <- notif.Clone():
		default:
			s.logger.Warn("dropping notification for slow subscriber", "id", notif.ID)
		}
	}
}

func (s *Service) cleanupLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.cleanupTicker.C:
			if err := s.store.DeleteExpired(); err != nil {
				s.logger.Error("failed to clean up expired notifications", "error", err)
			}
		}
	}
}

// ConnectErrorReporting registers the service as the error reporter, so
// every built error surfaces as an error notification.
func (s *Service) ConnectErrorReporting() {
	errors.SetReporter(reporterFunc(func(ee *errors.EnhancedError) {
		title := "Error in " + ee.GetComponent()
		notif, err := s.Create(TypeError, PriorityHigh, title, ee.Error())
		if err != nil {
			return
		}
		notif.WithComponent(ee.GetComponent()).
			WithMetadata("category", ee.GetCategory())
		_ = s.store.Update(notif)
	}))
}

type reporterFunc func(ee *errors.EnhancedError)

func (f reporterFunc) ReportError(ee *errors.EnhancedError) { f(ee) }
