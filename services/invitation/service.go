package invitation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/repository"
	"insulead-core/pkg/util"
	"insulead-core/services/directory"
	"insulead-core/services/lead"
	"insulead-core/services/notification"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/invitation")

const (
	msgUnavailable     = "this invitation is no longer available"
	msgAlreadyRedeemed = "a quote has already been submitted for this invitation"
	msgNotFound        = "invitation not found"
)

var errLostRace = errors.New("invitation no longer active")

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       clock.Clock
	notifier    notification.Notifier
	leads       *lead.Service
	contractors *directory.Service
	validate    *validator.Validate
	repo        repository.Repository[Invitation]
	quotes      repository.Repository[Quote]
}

type ServiceParams struct {
	fx.In
	DB          *gorm.DB
	Node        *snowflake.Node
	Clock       clock.Clock
	Notifier    notification.Notifier
	Leads       *lead.Service
	Contractors *directory.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		clock:       p.Clock,
		notifier:    p.Notifier,
		leads:       p.Leads,
		contractors: p.Contractors,
		validate:    util.NewValidator(),
		repo:        repository.ProvideStore[Invitation](p.DB),
		quotes:      repository.ProvideStore[Quote](p.DB),
	}
}

// IssueTx creates one active invitation per contractor inside tx. Each
// invitation gets its own token and expires at now + ttl.
func (s *Service) IssueTx(ctx context.Context, tx *gorm.DB, leadID string, contractorIDs []string, ttl time.Duration) ([]Issued, error) {
	if ttl <= 0 {
		return nil, errutil.ValidationFailed("ttl must be positive", nil,
			errutil.WithDetails(errutil.Detail{Field: "ttl", Message: "gt"}))
	}

	now := s.clock.Now()
	out := make([]Issued, 0, len(contractorIDs))
	rows := make([]*Invitation, 0, len(contractorIDs))

	for _, cid := range contractorIDs {
		token, err := util.GenerateToken()
		if err != nil {
			return nil, fmt.Errorf("generate invitation token: %w", err)
		}
		inv := &Invitation{
			ID:           s.node.Generate().String(),
			LeadID:       leadID,
			ContractorID: cid,
			TokenHash:    util.HashToken(token),
			State:        StateActive,
			ExpiresAt:    now.Add(ttl),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		rows = append(rows, inv)
		out = append(out, Issued{Invitation: inv, Token: token})
	}

	if err := s.repo.WithTrx(tx).BatchCreate(ctx, rows); err != nil {
		return nil, fmt.Errorf("create invitations: %w", err)
	}

	return out, nil
}

func (s *Service) findByToken(ctx context.Context, token string) (*Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errutil.NotFound(msgNotFound, nil)
	}

	inv, err := s.repo.FindOne(ctx, &Invitation{TokenHash: util.HashToken(token)})
	if err != nil {
		return nil, errutil.Internal("failed to load invitation", err)
	}
	if inv == nil {
		return nil, errutil.NotFound(msgNotFound, nil)
	}
	return inv, nil
}

// expire persists a lazily detected expiry. Failure is only logged; the read
// path already reports the invitation as expired.
func (s *Service) expire(ctx context.Context, inv *Invitation, now time.Time) {
	res := s.db.WithContext(ctx).Model(&Invitation{}).
		Where("id = ? AND state = ?", inv.ID, StateActive).
		Updates(map[string]any{"state": StateExpired, "updated_at": now})
	if res.Error != nil {
		logger.WithTrace(ctx).Warn("failed to persist invitation expiry", zap.String("invitation_id", inv.ID), zap.Error(res.Error))
		return
	}
	inv.State = StateExpired
}

// Resolve returns the invitation and the lead it is for. An invitation past
// its expiry is always reported as gone.
func (s *Service) Resolve(ctx context.Context, token string) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "invitation.Resolve")
	defer span.End()

	inv, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if inv.EffectiveState(now) == StateExpired {
		if inv.State == StateActive {
			s.expire(ctx, inv, now)
		}
		return nil, errutil.Gone(msgUnavailable, nil)
	}

	l, err := s.leads.Get(ctx, inv.LeadID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Invitation: inv,
		Lead: &LeadSummary{
			ID:            l.ID,
			City:          l.City,
			Region:        l.Region,
			PostalCode:    l.PostalCode,
			ServiceAreas:  l.ServiceAreas,
			MaterialTypes: l.MaterialTypes,
			Notes:         l.Notes,
		},
	}, nil
}

func (s *Service) validateQuote(in QuoteInput) error {
	if err := s.validate.Struct(in); err != nil {
		return errutil.FromValidation(err)
	}
	if !in.Amount.IsPositive() {
		return errutil.ValidationFailed("amount must be greater than zero", nil,
			errutil.WithDetails(errutil.Detail{Field: "amount", Message: "gt"}))
	}
	if !in.Amount.Equal(in.Amount.Truncate(2)) {
		return errutil.ValidationFailed("amount must have at most two decimal places", nil,
			errutil.WithDetails(errutil.Detail{Field: "amount", Message: "decimals"}))
	}
	return nil
}

// Redeem records the contractor's quote and consumes the invitation. Of any
// number of concurrent calls for one token exactly one succeeds.
func (s *Service) Redeem(ctx context.Context, token string, in QuoteInput) (*Redemption, error) {
	ctx, span := tracer.Start(ctx, "invitation.Redeem")
	defer span.End()

	if err := s.validateQuote(in); err != nil {
		return nil, err
	}

	inv, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	zapLog := logger.WithTrace(ctx).With(zap.String("invitation_id", inv.ID), zap.String("lead_id", inv.LeadID))

	if inv.ContractorID != strings.TrimSpace(in.ContractorID) {
		zapLog.Warn("quote submitted by another contractor", zap.String("contractor_id", in.ContractorID))
		return nil, errutil.Forbidden("this invitation belongs to another contractor", nil)
	}

	now := s.clock.Now()
	switch inv.EffectiveState(now) {
	case StateRedeemed:
		return nil, errutil.Conflict(msgAlreadyRedeemed, nil)
	case StateExpired:
		if inv.State == StateActive {
			s.expire(ctx, inv, now)
		}
		return nil, errutil.Gone(msgUnavailable, nil)
	}

	quote := &Quote{
		ID:           s.node.Generate().String(),
		InvitationID: inv.ID,
		LeadID:       inv.LeadID,
		ContractorID: inv.ContractorID,
		Amount:       in.Amount.Round(2),
		Timeline:     strings.TrimSpace(in.Timeline),
		Notes:        in.Notes,
		CreatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Invitation{}).
			Where("id = ? AND state = ? AND expires_at >= ?", inv.ID, StateActive, now).
			Updates(map[string]any{"state": StateRedeemed, "redeemed_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errLostRace
		}
		return s.quotes.WithTrx(tx).Create(ctx, quote)
	})
	if err != nil {
		if errors.Is(err, errLostRace) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.lostRace(ctx, inv.ID, now)
		}
		zapLog.Error("failed to redeem invitation", zap.Error(err))
		return nil, errutil.Internal("failed to submit quote", err)
	}

	zapLog.Info("invitation redeemed", zap.String("quote_id", quote.ID))

	return &Redemption{Quote: quote, NotificationQueued: s.notifyQuote(ctx, quote)}, nil
}

func (s *Service) lostRace(ctx context.Context, id string, now time.Time) error {
	latest, err := s.repo.FindOne(ctx, &Invitation{ID: id})
	if err != nil {
		return errutil.Internal("failed to load invitation", err)
	}
	if latest == nil {
		return errutil.NotFound(msgNotFound, nil)
	}
	if latest.EffectiveState(now) == StateRedeemed {
		return errutil.Conflict(msgAlreadyRedeemed, nil)
	}
	return errutil.Gone(msgUnavailable, nil)
}

func (s *Service) notifyQuote(ctx context.Context, q *Quote) bool {
	zapLog := logger.WithTrace(ctx).With(zap.String("quote_id", q.ID))

	l, err := s.leads.Get(ctx, q.LeadID)
	if err != nil {
		zapLog.Error("failed to load lead for quote notice", zap.Error(err))
		return false
	}

	var name string
	if c, err := s.contractors.Get(ctx, q.ContractorID); err == nil {
		name = c.BusinessName
		if name == "" {
			name = c.DisplayName
		}
	}

	if err := s.notifier.QuoteSubmitted(ctx, notification.QuoteSubmittedPayload{
		QuoteID:        q.ID,
		LeadID:         l.ID,
		LeadName:       l.ContactName,
		LeadEmail:      l.ContactEmail,
		LeadPhone:      l.ContactPhone,
		ContractorName: name,
		Amount:         q.Amount.StringFixed(2),
		Timeline:       q.Timeline,
	}); err != nil {
		zapLog.Error("failed to queue quote notice", zap.Error(err))
		return false
	}
	return true
}

// ListByLead returns every invitation issued for a lead, oldest first.
func (s *Service) ListByLead(ctx context.Context, leadID string) ([]*Invitation, error) {
	out, err := s.repo.Find(ctx, &Invitation{LeadID: leadID}, func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
	if err != nil {
		return nil, errutil.Internal("failed to list invitations", err)
	}
	now := s.clock.Now()
	for _, inv := range out {
		inv.State = inv.EffectiveState(now)
	}
	return out, nil
}
