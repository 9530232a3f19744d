package locations

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/othaplug/crewtrack/internal/cache/rediscache"
	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/storage/redisloc"
)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redisloc.New(mr.Addr(), time.Hour)
	limiter := rediscache.NewRateLimiter(mr.Addr())
	return New(store, limiter), mr
}

func sessionPing(sessionID, deviceID string, lat, lng float64) models.LocationPing {
	return models.LocationPing{
		SessionID: &sessionID,
		DeviceID:  deviceID,
		Lat:       lat,
		Lng:       lng,
		Timestamp: time.Now().UTC(),
	}
}

func TestIngest_ThrottlePerKey(t *testing.T) {
	svc, mr := newService(t)
	ctx := context.Background()

	require.True(t, svc.Ingest(ctx, sessionPing("s1", "dev-1", 59.93, 30.36)))
	// same key inside the window: dropped
	require.False(t, svc.Ingest(ctx, sessionPing("s1", "dev-1", 59.94, 30.37)))
	// другой ключ — своё окно
	require.True(t, svc.Ingest(ctx, sessionPing("s2", "dev-1", 55.75, 37.62)))

	mr.FastForward(DefaultMinInterval + time.Second)
	require.True(t, svc.Ingest(ctx, sessionPing("s1", "dev-1", 59.95, 30.38)))

	ping, ok, err := svc.Last(ctx, "s1", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 59.95, ping.Lat, 1e-9)
}

func TestIngest_LastWriterWinsWithinAllowedPings(t *testing.T) {
	svc, mr := newService(t)
	svc.WithMinInterval(time.Second)
	ctx := context.Background()

	require.True(t, svc.Ingest(ctx, sessionPing("s1", "dev-1", 1, 1)))
	mr.FastForward(2 * time.Second)
	require.True(t, svc.Ingest(ctx, sessionPing("s1", "dev-1", 2, 2)))

	ping, ok, err := svc.Last(ctx, "s1", "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 2.0, ping.Lat, 1e-9)
}

func TestIngest_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	require.False(t, svc.Ingest(ctx, models.LocationPing{Lat: 1, Lng: 1}))
	require.False(t, svc.Ingest(ctx, models.LocationPing{DeviceID: "d", Lat: 91, Lng: 0}))
	require.False(t, svc.Ingest(ctx, models.LocationPing{DeviceID: "d", Lat: 0, Lng: -181}))
}

func TestIngest_DeviceKeyFallback(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// ping without a session lands under the device key
	require.True(t, svc.Ingest(ctx, models.LocationPing{DeviceID: "dev-9", Lat: 48.85, Lng: 2.35, Timestamp: time.Now().UTC()}))

	ping, ok, err := svc.Last(ctx, "unknown-session", "dev-9")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dev-9", ping.DeviceID)

	_, ok, err = svc.Last(ctx, "", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWatcher_DrainsSourceAndCountsDrops(t *testing.T) {
	svc, _ := newService(t)
	svc.WithMinInterval(time.Minute)

	src := NewChannelSource(16)
	require.True(t, src.Offer(sessionPing("s1", "dev-1", 1, 1)))
	require.True(t, src.Offer(sessionPing("s1", "dev-1", 2, 2))) // throttled on ingest
	require.True(t, src.Offer(sessionPing("s2", "dev-2", 3, 3)))
	require.NoError(t, src.Close())

	w := NewWatcher(svc, src)
	require.NoError(t, w.Run(context.Background()))

	st := w.Stats()
	require.Equal(t, int64(3), st.TotalReceived)
	require.Equal(t, int64(2), st.TotalAccepted)
	require.Equal(t, int64(1), st.TotalDropped)
	require.NotNil(t, st.LastPingAt)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	svc, _ := newService(t)
	src := NewChannelSource(1)
	w := NewWatcher(svc, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	// Offer after close is refused
	w.Close()
	require.False(t, src.Offer(sessionPing("s1", "dev-1", 1, 1)))
}

func TestChannelSource_OfferNonBlocking(t *testing.T) {
	src := NewChannelSource(1)
	require.True(t, src.Offer(sessionPing("s1", "d", 1, 1)))
	// buffer full: dropped, never blocks
	require.False(t, src.Offer(sessionPing("s1", "d", 2, 2)))

	ping, err := src.Next(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 1.0, ping.Lat, 1e-9)

	require.NoError(t, src.Close())
	_, err = src.Next(context.Background())
	require.ErrorIs(t, err, ErrSourceClosed)
}
