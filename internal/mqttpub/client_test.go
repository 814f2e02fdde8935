package mqttpub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/errors"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "PlantID-Go"
	settings.MQTT.Broker = "tcp://no-such-host.invalid:1883"
	settings.MQTT.Topic = "plantid/identifications"

	return NewClient(settings, nil)
}

func TestConnectFailsOnUnresolvableBroker(t *testing.T) {
	client := newTestClient(t)

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, client.IsConnected())
}

func TestConnectCooldown(t *testing.T) {
	client := newTestClient(t)
	client.lastConnAttempt = time.Now()

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection attempt too recent")
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnect))
}

func TestConnectRejectsInvalidBrokerURL(t *testing.T) {
	client := newTestClient(t)
	client.broker = "://not-a-url"

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPublishWithoutConnection(t *testing.T) {
	client := newTestClient(t)

	err := client.Publish(context.Background(), "plantid/identifications", "{}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
}

func TestPublishEntryOmitsImagePayload(t *testing.T) {
	client := newTestClient(t)

	entry := &history.Entry{
		ID:        "abc",
		Timestamp: time.Now(),
		Record:    *plantid.DefaultRecord(),
		ImageData: "data:image/jpeg;base64,AAAA",
	}

	// Not connected, so publish fails, but the entry must not be mutated
	err := client.PublishEntry(context.Background(), entry)
	require.Error(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", entry.ImageData)
}
