package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/verdanthq/plantid-go/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc := NewService(&ServiceConfig{
		MaxNotifications:   50,
		CleanupInterval:    time.Hour,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: 100,
	})
	t.Cleanup(svc.Stop)
	return svc
}

func TestServiceCreateAndList(t *testing.T) {
	svc := newTestService(t)

	notif, err := svc.Create(TypeIdentification, PriorityLow, "Plant identified", "Aloe Vera (92%)")
	require.NoError(t, err)
	assert.NotEmpty(t, notif.ID)

	all, err := svc.List(nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, TypeIdentification, all[0].Type)
}

func TestServiceBroadcastToSubscribers(t *testing.T) {
	svc := newTestService(t)

	sub := svc.Subscribe()
	defer svc.Unsubscribe(sub)

	_, err := svc.Create(TypeInfo, PriorityLow, "hello", "world")
	require.NoError(t, err)

	select {
	case notif := <-sub.Notifications():
		assert.Equal(t, "hello", notif.Title)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast notification")
	}
}

func TestServiceBroadcastCarriesComponent(t *testing.T) {
	svc := newTestService(t)

	sub := svc.Subscribe()
	defer svc.Unsubscribe(sub)

	created, err := svc.CreateWithComponent(TypeIdentification, PriorityMedium,
		"Plant identified: Aloe vera", "", "plantid")
	require.NoError(t, err)
	assert.Equal(t, "plantid", created.Component)

	select {
	case notif := <-sub.Notifications():
		assert.Equal(t, "plantid", notif.Component)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast notification")
	}

	stored, err := svc.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "plantid", stored.Component)
}

func TestServiceUnsubscribeClosesChannel(t *testing.T) {
	svc := newTestService(t)

	sub := svc.Subscribe()
	svc.Unsubscribe(sub)

	_, open := <-sub.Notifications()
	assert.False(t, open)
}

func TestServiceRateLimit(t *testing.T) {
	svc := NewService(&ServiceConfig{
		MaxNotifications:   50,
		CleanupInterval:    time.Hour,
		RateLimitWindow:    time.Minute,
		RateLimitMaxEvents: 2,
	})
	t.Cleanup(svc.Stop)

	_, err := svc.Create(TypeInfo, PriorityLow, "a", "m")
	require.NoError(t, err)
	_, err = svc.Create(TypeInfo, PriorityLow, "b", "m")
	require.NoError(t, err)

	_, err = svc.Create(TypeInfo, PriorityLow, "c", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestServiceMarkReadAndUnreadCount(t *testing.T) {
	svc := newTestService(t)

	notif, err := svc.Create(TypeWarning, PriorityMedium, "t", "m")
	require.NoError(t, err)

	count, err := svc.UnreadCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkRead(notif.ID))

	count, err = svc.UnreadCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServiceErrorReporting(t *testing.T) {
	svc := newTestService(t)
	svc.ConnectErrorReporting()
	t.Cleanup(func() { errors.SetReporter(nil) })

	_ = errors.Newf("capture failed").
		Component("camera").
		Category(errors.CategoryDeviceBusy).
		Build()

	all, err := svc.List(&FilterOptions{Types: []Type{TypeError}})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Message, "capture failed")
	assert.Equal(t, "camera", all[0].Component)
}
