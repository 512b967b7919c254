package router

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/config"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/services/directory"
	"insulead-core/services/invitation"
	"insulead-core/services/lead"
	"insulead-core/services/notification"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/router")

const msgNoEligible = "no eligible contractor"

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       clock.Clock
	notifier    notification.Notifier
	leads       *lead.Service
	contractors *directory.Service
	invitations *invitation.Service
	selector    Selector
	defaultTTL  time.Duration
	fanOut      int
}

type ServiceParams struct {
	fx.In
	DB          *gorm.DB
	Node        *snowflake.Node
	Clock       clock.Clock
	Config      *config.Config
	Notifier    notification.Notifier
	Leads       *lead.Service
	Contractors *directory.Service
	Invitations *invitation.Service
	Selector    Selector `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:          p.DB,
		node:        p.Node,
		clock:       p.Clock,
		notifier:    p.Notifier,
		leads:       p.Leads,
		contractors: p.Contractors,
		invitations: p.Invitations,
		selector:    p.Selector,
		defaultTTL:  p.Config.Invitation.DefaultTTL,
		fanOut:      p.Config.Invitation.FanOut,
	}
	if s.selector == nil {
		s.selector = NewRandomSelector()
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = 48 * time.Hour
	}
	if s.fanOut <= 0 {
		s.fanOut = 3
	}
	return s
}

func (s *Service) DefaultTTL() time.Duration { return s.defaultTTL }

// RouteDirect hands a lead to one approved contractor without an invitation.
func (s *Service) RouteDirect(ctx context.Context, leadID, contractorID string) (*lead.Assignment, error) {
	ctx, span := tracer.Start(ctx, "router.RouteDirect")
	defer span.End()

	zapLog := logger.WithTrace(ctx).With(zap.String("lead_id", leadID), zap.String("contractor_id", contractorID))

	var (
		assignment *lead.Assignment
		contractor *directory.Contractor
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.leads.GetTx(ctx, tx, leadID); err != nil {
			return err
		}

		c, err := s.contractors.GetTx(ctx, tx, contractorID)
		if err != nil {
			if errutil.Is(err, errutil.StatusNotFound) {
				return errutil.UnprocessableEntity(msgNoEligible, err)
			}
			return err
		}
		if c.Status != directory.StatusApproved {
			return errutil.UnprocessableEntity(msgNoEligible, nil)
		}
		contractor = c

		now := s.clock.Now()
		assignment = &lead.Assignment{
			ID:           s.node.Generate().String(),
			LeadID:       leadID,
			ContractorID: contractorID,
			CreatedAt:    now,
		}
		if err := tx.Create(assignment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errutil.Conflict("lead is already assigned to this contractor", err)
			}
			return err
		}

		return s.leads.MarkRoutedTx(ctx, tx, leadID, lead.RoutingDirect, now)
	})
	if err != nil {
		return nil, s.wrap(ctx, err, "failed to assign lead")
	}

	zapLog.Info("lead assigned")

	if err := s.notifier.LeadAssigned(ctx, notification.LeadAssignedPayload{
		AssignmentID:    assignment.ID,
		LeadID:          leadID,
		ContractorID:    contractor.ID,
		ContractorEmail: contractor.Email,
		ContractorName:  contractor.DisplayName,
	}); err != nil {
		zapLog.Error("failed to queue lead assigned notice", zap.Error(err))
	}

	return assignment, nil
}

// RouteByInvitation issues one invitation per distinct contractor. Either every
// contractor is approved and all invitations are created, or nothing is.
func (s *Service) RouteByInvitation(ctx context.Context, leadID string, contractorIDs []string, ttl time.Duration) (*InvitationResult, error) {
	ctx, span := tracer.Start(ctx, "router.RouteByInvitation")
	defer span.End()

	zapLog := logger.WithTrace(ctx).With(zap.String("lead_id", leadID))

	if ttl <= 0 {
		return nil, errutil.ValidationFailed("ttl must be positive", nil,
			errutil.WithDetails(errutil.Detail{Field: "ttl_hours", Message: "gt"}))
	}

	ids := dedupe(contractorIDs)
	if len(ids) == 0 {
		return nil, errutil.UnprocessableEntity(msgNoEligible, nil)
	}

	var (
		issued   []invitation.Issued
		eligible map[string]*directory.Contractor
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.leads.GetTx(ctx, tx, leadID); err != nil {
			return err
		}

		approved, err := s.contractors.ApprovedTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(approved) != len(ids) {
			zapLog.Info("invitation routing refused", zap.Int("requested", len(ids)), zap.Int("approved", len(approved)))
			return errutil.UnprocessableEntity(msgNoEligible, nil)
		}

		eligible = make(map[string]*directory.Contractor, len(approved))
		for _, c := range approved {
			eligible[c.ID] = c
		}

		issued, err = s.invitations.IssueTx(ctx, tx, leadID, ids, ttl)
		if err != nil {
			return err
		}

		return s.leads.MarkRoutedTx(ctx, tx, leadID, lead.RoutingInvitation, s.clock.Now())
	})
	if err != nil {
		return nil, s.wrap(ctx, err, "failed to route lead")
	}

	zapLog.Info("lead routed by invitation", zap.Int("invitations", len(issued)))

	var (
		queued atomic.Int64
		g      errgroup.Group
	)
	g.SetLimit(8)
	for _, iss := range issued {
		c := eligible[iss.Invitation.ContractorID]
		g.Go(func() error {
			err := s.notifier.InvitationIssued(ctx, notification.InvitationPayload{
				InvitationID:    iss.Invitation.ID,
				LeadID:          leadID,
				ContractorID:    c.ID,
				ContractorEmail: c.Email,
				ContractorName:  c.DisplayName,
				Token:           iss.Token,
				ExpiresAt:       iss.Invitation.ExpiresAt,
			})
			if err != nil {
				zapLog.Error("failed to queue invitation notice",
					zap.String("invitation_id", iss.Invitation.ID), zap.Error(err))
				return nil
			}
			queued.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	out := &InvitationResult{Invitations: make([]*invitation.Invitation, 0, len(issued)), NotificationsQueued: int(queued.Load())}
	for _, iss := range issued {
		out.Invitations = append(out.Invitations, iss.Invitation)
	}
	return out, nil
}

// AutoRoute lets the selector choose the contractors to invite, skipping any
// already invited to this lead.
func (s *Service) AutoRoute(ctx context.Context, leadID string, ttl time.Duration) (*InvitationResult, error) {
	ctx, span := tracer.Start(ctx, "router.AutoRoute")
	defer span.End()

	if _, err := s.leads.Get(ctx, leadID); err != nil {
		return nil, err
	}

	approved, err := s.contractors.ListApproved(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.invitations.ListByLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	invited := make(map[string]struct{}, len(existing))
	for _, inv := range existing {
		invited[inv.ContractorID] = struct{}{}
	}

	candidates := make([]*directory.Contractor, 0, len(approved))
	for _, c := range approved {
		if _, ok := invited[c.ID]; !ok {
			candidates = append(candidates, c)
		}
	}

	picked := s.selector.Select(ctx, candidates, s.fanOut)
	ids := make([]string, 0, len(picked))
	for _, c := range picked {
		ids = append(ids, c.ID)
	}

	return s.RouteByInvitation(ctx, leadID, ids, ttl)
}

func (s *Service) wrap(ctx context.Context, err error, msg string) error {
	var be errutil.BaseError
	if errors.As(err, &be) {
		return err
	}
	logger.WithTrace(ctx).Error(msg, zap.Error(err))
	return errutil.Internal(msg, err)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
