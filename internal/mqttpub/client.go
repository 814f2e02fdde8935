// Package mqttpub publishes identification events to an MQTT broker.
package mqttpub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/logging"
	"github.com/verdanthq/plantid-go/internal/observability/metrics"
)

const (
	connectTimeout    = 30 * time.Second
	publishTimeout    = 10 * time.Second
	reconnectCooldown = 5 * time.Second
)

// Client publishes identification events to a broker. Safe for concurrent
// use.
type Client struct {
	mu              sync.Mutex
	broker          string
	clientID        string
	topic           string
	username        string
	password        string
	lastConnAttempt time.Time

	internal mqtt.Client
	metrics  *metrics.MQTTMetrics
	logger   *slog.Logger
}

// NewClient creates an MQTT publisher from the MQTT settings. The metrics
// argument may be nil.
func NewClient(settings *conf.Settings, m *metrics.MQTTMetrics) *Client {
	return &Client{
		broker:   settings.MQTT.Broker,
		clientID: settings.Main.Name,
		topic:    settings.MQTT.Topic,
		username: settings.MQTT.Username,
		password: settings.MQTT.Password,
		metrics:  m,
		logger:   logging.ForService("mqttpub"),
	}
}

// Connect establishes the broker connection. Repeated attempts within the
// cooldown window are rejected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < reconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago",
			time.Since(c.lastConnAttempt).Round(time.Millisecond)).
			Category(errors.CategoryMQTTConnect).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.broker)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("broker", c.broker).
			Build()
	}

	// Resolve hostnames up front so misconfigured brokers fail fast
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Category(errors.CategoryMQTTConnect).
				Context("host", host).
				Build()
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.broker)
	opts.SetClientID(c.clientID)
	opts.SetUsername(c.username)
	opts.SetPassword(c.password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internal = mqtt.NewClient(opts)

	token := c.internal.Connect()
	if !token.WaitTimeout(connectTimeout) {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.Newf("connection timeout").
			Category(errors.CategoryMQTTConnect).
			NetworkContext(c.broker, connectTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.New(err).
			Category(errors.CategoryMQTTConnect).
			NetworkContext(c.broker, connectTimeout).
			Build()
	}

	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internal != nil && c.internal.IsConnected()
}

// Disconnect closes the broker connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internal != nil {
		c.internal.Disconnect(250)
	}
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
}

// PublishEntry publishes an identification entry as JSON to the configured
// topic. The image payload is omitted to keep messages small.
func (c *Client) PublishEntry(ctx context.Context, entry *history.Entry) error {
	slim := *entry
	slim.ImageData = ""

	payload, err := json.Marshal(&slim)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_entry").
			Build()
	}
	return c.Publish(ctx, c.topic, string(payload))
}

// Publish sends a message to the given topic.
func (c *Client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internal == nil || !c.internal.IsConnected() {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.Newf("not connected to MQTT broker").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	var timer *metrics.PublishTimer
	if c.metrics != nil {
		timer = c.metrics.StartPublishTimer()
		defer timer.ObserveDuration()
	}

	token := c.internal.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.Newf("publish timeout").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		if c.metrics != nil {
			c.metrics.IncrementErrors()
		}
		return errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	if c.metrics != nil {
		c.metrics.IncrementMessagesDelivered()
		c.metrics.ObserveMessageSize(float64(len(payload)))
	}
	c.logger.Debug("message published", "topic", topic, "bytes", len(payload))
	return nil
}

func (c *Client) onConnect(mqtt.Client) {
	c.logger.Info("connected to MQTT broker", "broker", c.broker)
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("MQTT connection lost", "broker", c.broker, "error", err)
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
		c.metrics.IncrementReconnectAttempts()
	}
}
