// Package sessions owns the lifecycle of a tracking session: start, checkpoint
// advancement, completion and read-back. It composes the verification gate and
// the status flow table to decide whether a requested transition is legal.
package sessions

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/othaplug/crewtrack/internal/broker/messages"
	"github.com/othaplug/crewtrack/internal/cache"
	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
	"github.com/othaplug/crewtrack/internal/statusflow"
	"github.com/othaplug/crewtrack/internal/storage/pgcrew"
)

type Repository interface {
	CreateSession(ctx context.Context, sess *models.TrackingSession) error
	GetSession(ctx context.Context, id string) (*models.TrackingSession, error)
	ListCheckpoints(ctx context.Context, sessionID string) ([]*models.Checkpoint, error)
	LatestCheckpoint(ctx context.Context, sessionID string) (*models.Checkpoint, error)
	AdvanceSession(ctx context.Context, upd pgcrew.SessionAdvance) (*models.Checkpoint, error)
	AddInventoryItems(ctx context.Context, job models.JobRef, items []pgcrew.InventoryItemInput) error
	VerifyItem(ctx context.Context, v models.Verification) error
	AddPhoto(ctx context.Context, p *models.PhotoRecord) error
}

// Checker is the verification gate for the session's current checkpoint.
type Checker interface {
	Check(ctx context.Context, sess *models.TrackingSession) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// LocationReader reads the last known location for a key (see redisloc).
type LocationReader interface {
	Get(ctx context.Context, key string) (*models.LocationPing, bool, error)
}

type Service struct {
	repo Repository
	gate Checker

	producer Producer
	topic    string

	locs   LocationReader
	locKey func(sessionID string) string

	cache      cache.BytesCache
	currentTTL time.Duration
}

func New(repo Repository, g Checker) *Service {
	return &Service{repo: repo, gate: g}
}

// WithCompletionEvents publishes SessionCompleted to topic on the terminal
// transition. Best effort: a publish failure never rolls the transition back.
func (s *Service) WithCompletionEvents(p Producer, topic string) *Service {
	s.producer = p
	s.topic = topic
	return s
}

func (s *Service) WithLocations(locs LocationReader, key func(sessionID string) string) *Service {
	s.locs = locs
	s.locKey = key
	return s
}

func (s *Service) WithCache(c cache.BytesCache, ttl time.Duration) *Service {
	s.cache = c
	s.currentTTL = ttl
	return s
}

// Start creates a session for the job with an implicit first checkpoint at
// not_started. errs.ErrConflict if the job already has an active session.
func (s *Service) Start(ctx context.Context, job models.JobRef) (*models.TrackingSession, error) {
	if !job.JobType.Valid() {
		return nil, errs.Invalidf("unknown job type %q", job.JobType)
	}
	if job.JobID == "" {
		return nil, errs.Invalidf("jobId is required")
	}

	now := time.Now().UTC()
	sess := &models.TrackingSession{
		ID:            uuid.NewString(),
		Job:           job,
		CurrentStatus: models.StatusNotStarted,
		IsActive:      true,
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.cacheSession(ctx, sess)
	return sess, nil
}

type AdvanceInput struct {
	SessionID string

	// Target is optional: the status the client believes it is advancing to.
	// When the session is already there the call is a success no-op, which is
	// what makes a retry after a network timeout (or the losing side of a
	// concurrent advance) safe.
	Target models.Status

	Note *string
	Lat  *float64
	Lng  *float64
}

// Advance moves the session to the next checkpoint of its flow.
// errs.ErrBlocked when the gate for the current checkpoint is unsatisfied,
// errs.ErrInvalidState for a non-active, non-completed session. Advancing a
// completed session is a no-op returning the final checkpoint.
func (s *Service) Advance(ctx context.Context, in AdvanceInput) (*models.Checkpoint, error) {
	sess, err := s.repo.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	if sess.CurrentStatus == models.StatusCompleted {
		return s.repo.LatestCheckpoint(ctx, in.SessionID)
	}
	if in.Target != "" && sess.CurrentStatus == in.Target {
		return s.repo.LatestCheckpoint(ctx, in.SessionID)
	}
	if !sess.IsActive {
		return nil, errs.InvalidStatef("session %s is not active", sess.ID)
	}

	next, err := statusflow.Next(sess.Job.JobType, sess.CurrentStatus)
	if err != nil {
		if errors.Is(err, statusflow.ErrTerminal) {
			return s.repo.LatestCheckpoint(ctx, in.SessionID)
		}
		return nil, errs.InvalidStatef("session %s: %v", sess.ID, err)
	}
	if in.Target != "" && in.Target != next {
		return nil, errs.InvalidStatef("session %s is at %s, next stage is %s, not %s",
			sess.ID, sess.CurrentStatus, next, in.Target)
	}

	if err := s.gate.Check(ctx, sess); err != nil {
		return nil, err
	}

	cp, err := s.repo.AdvanceSession(ctx, pgcrew.SessionAdvance{
		SessionID:  sess.ID,
		From:       sess.CurrentStatus,
		To:         next,
		Note:       in.Note,
		Lat:        in.Lat,
		Lng:        in.Lng,
		Complete:   next == models.StatusCompleted,
		RecordedAt: time.Now().UTC(),
	})
	if errors.Is(err, pgcrew.ErrStaleStatus) {
		// Кто-то успел раньше. Перечитываем и применяем контракт идемпотентности.
		return s.resolveStale(ctx, in.SessionID, next)
	}
	if err != nil {
		return nil, err
	}

	if next == models.StatusCompleted {
		s.publishCompleted(ctx, sess, cp.RecordedAt)
	}
	s.refreshCache(ctx, sess.ID)
	return cp, nil
}

// resolveStale handles the loser of a concurrent advance: if the session is now
// where this call was heading (or beyond, at completed), the post-condition
// holds and the call is a success no-op. Anything else is a real conflict.
func (s *Service) resolveStale(ctx context.Context, sessionID string, wanted models.Status) (*models.Checkpoint, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentStatus == wanted || sess.CurrentStatus == models.StatusCompleted {
		return s.repo.LatestCheckpoint(ctx, sessionID)
	}
	return nil, errs.Conflictf("session %s advanced concurrently to %s", sessionID, sess.CurrentStatus)
}

func (s *Service) publishCompleted(ctx context.Context, sess *models.TrackingSession, at time.Time) {
	if s.producer == nil || s.topic == "" {
		return
	}
	msg := messages.SessionCompleted{
		SessionID:   sess.ID,
		JobType:     string(sess.Job.JobType),
		JobID:       sess.Job.JobID,
		CompletedAt: at,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal session completed", "session_id", sess.ID, "error", err.Error())
		return
	}
	if err := s.producer.Publish(ctx, s.topic, []byte(sess.ID), b); err != nil {
		// Транзишен уже записан; событие потеряно — это видно в логах.
		slog.Error("publish session completed", "session_id", sess.ID, "error", err.Error())
	}
}

// State is the read-only reconstruction polling clients consume. Checkpoints
// are in recorded order; lastLocation may be nil for sessions with no pings.
type State struct {
	Session      *models.TrackingSession `json:"session"`
	Checkpoints  []*models.Checkpoint    `json:"checkpoints"`
	LastLocation *models.LocationPing    `json:"lastLocation,omitempty"`
	Progress     float64                 `json:"progress"`
}

func (s *Service) GetState(ctx context.Context, sessionID string) (*State, error) {
	sess, err := s.getSessionCached(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cps, err := s.repo.ListCheckpoints(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st := &State{
		Session:     sess,
		Checkpoints: cps,
		Progress:    statusflow.Progress(sess.Job.JobType, sess.CurrentStatus),
	}

	if s.locs != nil && s.locKey != nil {
		loc, ok, err := s.locs.Get(ctx, s.locKey(sessionID))
		if err != nil {
			// Локация — best effort, стейт важнее.
			slog.Warn("read last location", "session_id", sessionID, "error", err.Error())
		} else if ok {
			st.LastLocation = loc
		}
	}
	return st, nil
}

// RegisterInventory loads the pre-trip inventory dispatch prepared for a job.
// Repeated registration of the same item key is a no-op.
func (s *Service) RegisterInventory(ctx context.Context, job models.JobRef, items []pgcrew.InventoryItemInput) error {
	if !job.JobType.Valid() {
		return errs.Invalidf("unknown job type %q", job.JobType)
	}
	if len(items) == 0 {
		return errs.Invalidf("items is empty")
	}
	for _, it := range items {
		if it.ItemKey == "" {
			return errs.Invalidf("itemKey is required")
		}
	}
	return s.repo.AddInventoryItems(ctx, job, items)
}

// Verify marks an item (or room) verified for a stage. Monotonic: repeating it
// succeeds without changing anything.
func (s *Service) Verify(ctx context.Context, sessionID, itemKey string, stage models.Stage) error {
	if itemKey == "" {
		return errs.Invalidf("itemKey is required")
	}
	if stage != models.StageLoading && stage != models.StageUnloading {
		return errs.Invalidf("unknown stage %q", stage)
	}
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return s.repo.VerifyItem(ctx, models.Verification{
		SessionID:  sessionID,
		ItemKey:    itemKey,
		Stage:      stage,
		VerifiedAt: time.Now().UTC(),
	})
}

// AddPhoto records photo evidence for a checkpoint category.
func (s *Service) AddPhoto(ctx context.Context, sessionID, category, url string) (*models.PhotoRecord, error) {
	if category == "" {
		return nil, errs.Invalidf("category is required")
	}
	if url == "" {
		return nil, errs.Invalidf("url is required")
	}
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	p := &models.PhotoRecord{
		SessionID: sessionID,
		Category:  category,
		URL:       url,
		TakenAt:   time.Now().UTC(),
	}
	if err := s.repo.AddPhoto(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func currentKey(sessionID string) string {
	return "session:" + sessionID + ":current"
}

func (s *Service) getSessionCached(ctx context.Context, sessionID string) (*models.TrackingSession, error) {
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(sessionID)); err == nil && ok {
			var sess models.TrackingSession
			if json.Unmarshal(b, &sess) == nil {
				return &sess, nil
			}
		}
	}
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.cacheSession(ctx, sess)
	return sess, nil
}

func (s *Service) cacheSession(ctx context.Context, sess *models.TrackingSession) {
	if s.cache == nil || s.currentTTL <= 0 {
		return
	}
	b, _ := json.Marshal(sess)
	_ = s.cache.Set(ctx, currentKey(sess.ID), b, s.currentTTL)
}

func (s *Service) refreshCache(ctx context.Context, sessionID string) {
	if s.cache == nil || s.currentTTL <= 0 {
		return
	}
	if sess, err := s.repo.GetSession(ctx, sessionID); err == nil {
		s.cacheSession(ctx, sess)
	}
}
