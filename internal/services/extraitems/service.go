package extraitems

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/othaplug/crewtrack/internal/errs"
	"github.com/othaplug/crewtrack/internal/models"
)

type Repository interface {
	GetSession(ctx context.Context, id string) (*models.TrackingSession, error)
	CreateExtraItem(ctx context.Context, req *models.ExtraItemRequest) error
	GetExtraItem(ctx context.Context, id string) (*models.ExtraItemRequest, error)
	DecideExtraItem(ctx context.Context, id string, decision models.ExtraItemStatus, feeCents *int64, decidedAt time.Time) (*models.ExtraItemRequest, error)
	ListExtraItemsForJob(ctx context.Context, job models.JobRef, status models.ExtraItemStatus) ([]*models.ExtraItemRequest, error)
	ListInventoryItems(ctx context.Context, job models.JobRef) ([]*models.InventoryItem, error)
}

// Service handles items discovered on-site that the original inventory does
// not cover. A request starts pending and takes exactly one decision.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

type SubmitInput struct {
	SessionID   string
	Description string
	Room        *string
	Quantity    int32
	RequestedBy models.RequestedBy
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.ExtraItemRequest, error) {
	if in.Description == "" {
		return nil, errs.Invalidf("description is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, errs.Invalidf("quantity must be positive")
	}
	if in.RequestedBy == "" {
		in.RequestedBy = models.RequestedByCrew
	}
	if in.RequestedBy != models.RequestedByCrew && in.RequestedBy != models.RequestedByClient {
		return nil, errs.Invalidf("unknown requester %q", in.RequestedBy)
	}

	sess, err := s.repo.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsActive {
		return nil, errs.InvalidStatef("session %s is not active", sess.ID)
	}

	req := &models.ExtraItemRequest{
		ID:          uuid.NewString(),
		Job:         sess.Job,
		SessionID:   sess.ID,
		Description: in.Description,
		Room:        in.Room,
		Quantity:    in.Quantity,
		RequestedBy: in.RequestedBy,
		Status:      models.ExtraItemPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateExtraItem(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Decide applies the single allowed decision. A zero or absent fee means the
// extra item carries no charge; the fee is stored for billing, not enforced here.
func (s *Service) Decide(ctx context.Context, id string, decision models.ExtraItemStatus, feeCents *int64) (*models.ExtraItemRequest, error) {
	if decision != models.ExtraItemApproved && decision != models.ExtraItemRejected {
		return nil, errs.Invalidf("decision must be approved or rejected, got %q", decision)
	}
	if feeCents != nil && *feeCents < 0 {
		return nil, errs.Invalidf("fee must not be negative")
	}
	if feeCents != nil && *feeCents == 0 {
		feeCents = nil
	}
	if decision == models.ExtraItemRejected {
		feeCents = nil
	}
	return s.repo.DecideExtraItem(ctx, id, decision, feeCents, time.Now().UTC())
}

func (s *Service) Get(ctx context.Context, id string) (*models.ExtraItemRequest, error) {
	return s.repo.GetExtraItem(ctx, id)
}

func (s *Service) ListForJob(ctx context.Context, job models.JobRef, status models.ExtraItemStatus) ([]*models.ExtraItemRequest, error) {
	if !job.JobType.Valid() || job.JobID == "" {
		return nil, errs.Invalidf("valid job reference is required")
	}
	return s.repo.ListExtraItemsForJob(ctx, job, status)
}

// DisplayLine is one row of the combined inventory view.
type DisplayLine struct {
	ItemKey     string  `json:"itemKey,omitempty"`
	Description string  `json:"description"`
	Room        *string `json:"room,omitempty"`
	Quantity    int32   `json:"quantity"`
	Extra       bool    `json:"extra"`
}

// DisplayInventory merges the pre-trip inventory with approved extra items.
// Одобренные extra-позиции помечаются флагом, но остаются вне верификации.
func (s *Service) DisplayInventory(ctx context.Context, job models.JobRef) ([]DisplayLine, error) {
	if !job.JobType.Valid() || job.JobID == "" {
		return nil, errs.Invalidf("valid job reference is required")
	}
	items, err := s.repo.ListInventoryItems(ctx, job)
	if err != nil {
		return nil, err
	}
	approved, err := s.repo.ListExtraItemsForJob(ctx, job, models.ExtraItemApproved)
	if err != nil {
		return nil, err
	}

	lines := make([]DisplayLine, 0, len(items)+len(approved))
	for _, it := range items {
		lines = append(lines, DisplayLine{
			ItemKey:     it.ItemKey,
			Description: it.Name,
			Room:        it.Room,
			Quantity:    1,
		})
	}
	for _, ex := range approved {
		lines = append(lines, DisplayLine{
			Description: ex.Description,
			Room:        ex.Room,
			Quantity:    ex.Quantity,
			Extra:       true,
		})
	}
	return lines, nil
}
