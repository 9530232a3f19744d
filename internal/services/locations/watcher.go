package locations

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/models"
)

// SampleSource yields location pings from some upstream (a broker, a test).
type SampleSource interface {
	Next(ctx context.Context) (models.LocationPing, error)
	Close() error
}

// Watcher drains a SampleSource into the location service until the source is
// exhausted or the context ends.
type Watcher struct {
	svc    *Service
	source SampleSource

	closeOnce sync.Once

	startedAtUnixNano int64
	lastPingUnixNano  atomic.Int64
	totalReceived     atomic.Int64
	totalAccepted     atomic.Int64
	totalDropped      atomic.Int64
}

func NewWatcher(svc *Service, source SampleSource) *Watcher {
	return &Watcher{
		svc:               svc,
		source:            source,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastPingAt    *time.Time `json:"lastPingAt,omitempty"`
	TotalReceived int64      `json:"totalReceived"`
	TotalAccepted int64      `json:"totalAccepted"`
	TotalDropped  int64      `json:"totalDropped"`
}

func (w *Watcher) Stats() Stats {
	st := Stats{
		StartedAt:     time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalReceived: w.totalReceived.Load(),
		TotalAccepted: w.totalAccepted.Load(),
		TotalDropped:  w.totalDropped.Load(),
	}
	if n := w.lastPingUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastPingAt = &t
	}
	return st
}

func (w *Watcher) Run(ctx context.Context) error {
	defer w.release()
	for {
		ping, err := w.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrSourceClosed) {
				return nil
			}
			return errors.Wrap(err, "location source")
		}
		w.totalReceived.Add(1)
		w.lastPingUnixNano.Store(time.Now().UTC().UnixNano())
		if w.svc.Ingest(ctx, ping) {
			w.totalAccepted.Add(1)
		} else {
			w.totalDropped.Add(1)
		}
	}
}

// release закрывает источник ровно один раз, каким бы путём Run ни вышел.
func (w *Watcher) release() {
	w.closeOnce.Do(func() {
		_ = w.source.Close()
	})
}

func (w *Watcher) Close() { w.release() }

var ErrSourceClosed = errors.New("location source closed")

// ChannelSource bridges push-style producers (a broker handler) to the
// pull-style SampleSource the watcher wants.
type ChannelSource struct {
	ch        chan models.LocationPing
	closeOnce sync.Once
	done      chan struct{}
}

func NewChannelSource(buf int) *ChannelSource {
	if buf <= 0 {
		buf = 256
	}
	return &ChannelSource{
		ch:   make(chan models.LocationPing, buf),
		done: make(chan struct{}),
	}
}

// Offer enqueues a ping without blocking; telemetry over a full buffer is
// dropped. Returns whether the ping was queued.
func (s *ChannelSource) Offer(ping models.LocationPing) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- ping:
		return true
	default:
		return false
	}
}

func (s *ChannelSource) Next(ctx context.Context) (models.LocationPing, error) {
	select {
	case <-ctx.Done():
		return models.LocationPing{}, ctx.Err()
	case ping, ok := <-s.ch:
		if !ok {
			return models.LocationPing{}, ErrSourceClosed
		}
		return ping, nil
	case <-s.done:
		// добираем то, что уже в буфере
		select {
		case ping, ok := <-s.ch:
			if ok {
				return ping, nil
			}
		default:
		}
		return models.LocationPing{}, ErrSourceClosed
	}
}

func (s *ChannelSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
