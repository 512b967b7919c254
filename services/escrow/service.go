package escrow

import (
	"context"
	"fmt"
	"strings"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/db/option"
	"insulead-core/pkg/db/pagination"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/repository"
	"insulead-core/pkg/sequence"
	"insulead-core/pkg/util"
	"insulead-core/services/directory"
	"insulead-core/services/notification"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/escrow")

const msgStale = "this job's status changed since you last viewed it, please refresh"

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       clock.Clock
	notifier    notification.Notifier
	contractors *directory.Service
	seq         sequence.Generator
	rates       RateProvider
	validate    *validator.Validate
	repo        repository.Repository[Job]
}

type ServiceParams struct {
	fx.In
	DB          *gorm.DB
	Node        *snowflake.Node
	Clock       clock.Clock
	Notifier    notification.Notifier
	Contractors *directory.Service
	Sequence    sequence.Generator
	Rates       RateProvider
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		clock:       p.Clock,
		notifier:    p.Notifier,
		contractors: p.Contractors,
		seq:         p.Sequence,
		rates:       p.Rates,
		validate:    util.NewValidator(),
		repo:        repository.ProvideStore[Job](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Job, error) {
	ctx, span := tracer.Start(ctx, "escrow.Create")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if !in.TotalAmount.IsPositive() {
		return nil, errutil.ValidationFailed("total amount must be greater than zero", nil,
			errutil.WithDetails(errutil.Detail{Field: "total_amount", Message: "gt"}))
	}
	if !in.TotalAmount.Equal(in.TotalAmount.Truncate(2)) {
		return nil, errutil.ValidationFailed("total amount must have at most two decimal places", nil,
			errutil.WithDetails(errutil.Detail{Field: "total_amount", Message: "decimals"}))
	}

	c, err := s.contractors.Get(ctx, strings.TrimSpace(in.ContractorID))
	if err != nil {
		return nil, err
	}
	if c.Status != directory.StatusApproved {
		return nil, errutil.UnprocessableEntity("contractor is not approved", nil)
	}

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return nil, errutil.DependencyFailed("failed to determine commission rate", err)
	}

	code, err := s.seq.NextJobCode(ctx)
	if err != nil {
		logger.WithTrace(ctx).Error("failed to allocate job code", zap.Error(err))
		return nil, errutil.DependencyFailed("failed to allocate job reference", err)
	}

	total := in.TotalAmount.Round(2)
	commission, payment := Split(total, rate)
	now := s.clock.Now()

	job := &Job{
		ID:                s.node.Generate().String(),
		Code:              code,
		ContractorID:      c.ID,
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		TotalAmount:       total,
		CommissionRate:    rate,
		CommissionAmount:  commission,
		ContractorPayment: payment,
		Status:            StatusPending,
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		logger.WithTrace(ctx).Error("failed to create escrow job", zap.Error(err))
		return nil, errutil.Internal("failed to create escrow job", err)
	}

	logger.WithTrace(ctx).Info("escrow job created",
		zap.String("job_id", job.ID),
		zap.String("code", job.Code),
		zap.String("total", total.StringFixed(2)),
		zap.String("commission", commission.StringFixed(2)))

	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.FindOne(ctx, &Job{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load escrow job", err)
	}
	if job == nil {
		return nil, errutil.NotFound("escrow job not found", nil)
	}
	return job, nil
}

// Transition moves a job to status to. The update only lands if the job is
// still in the status that was read.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Job, error) {
	return s.transition(ctx, id, "", to)
}

// TransitionAs is Transition on behalf of a contractor, who may only move
// their own jobs.
func (s *Service) TransitionAs(ctx context.Context, id, contractorID string, to Status) (*Job, error) {
	if contractorID == "" {
		return nil, errutil.ValidationFailed("contractor_id is required", nil,
			errutil.WithDetails(errutil.Detail{Field: "contractor_id", Message: "required"}))
	}
	return s.transition(ctx, id, contractorID, to)
}

func (s *Service) transition(ctx context.Context, id, owner string, to Status) (*Job, error) {
	ctx, span := tracer.Start(ctx, "escrow.Transition")
	defer span.End()

	zapLog := logger.WithTrace(ctx).With(zap.String("job_id", id), zap.String("to", string(to)))

	if !to.Valid() {
		return nil, errutil.ValidationFailed("unknown status", nil,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: "oneof"}))
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if owner != "" && job.ContractorID != owner {
		zapLog.Info("escrow transition by another contractor", zap.String("contractor_id", owner))
		return nil, errutil.Forbidden("this job belongs to another contractor", nil)
	}

	from := job.Status
	if !CanTransition(from, to) {
		zapLog.Info("escrow transition refused", zap.String("from", string(from)))
		return nil, errutil.UnprocessableEntity(fmt.Sprintf("cannot move job from %s to %s", from, to), nil)
	}

	now := s.clock.Now()
	updates := map[string]any{"status": to, "updated_at": now}
	switch to {
	case StatusInProgress:
		updates["start_date"] = now
		job.StartDate = &now
	case StatusCompleted:
		updates["completion_date"] = now
		updates["payment_released_date"] = now
		job.CompletionDate = &now
		job.PaymentReleasedDate = &now
	}

	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		zapLog.Error("failed to update escrow job", zap.Error(res.Error))
		return nil, errutil.Internal("failed to update escrow job", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errutil.UnprocessableEntity(msgStale, nil)
	}

	job.Status = to
	job.UpdatedAt = now
	zapLog.Info("escrow job transitioned", zap.String("from", string(from)))

	if to == StatusCompleted {
		s.notifyReleased(ctx, job)
	}

	return job, nil
}

func (s *Service) notifyReleased(ctx context.Context, job *Job) {
	zapLog := logger.WithTrace(ctx).With(zap.String("job_id", job.ID))

	var email string
	if c, err := s.contractors.Get(ctx, job.ContractorID); err == nil {
		email = c.Email
	} else {
		zapLog.Warn("contractor missing for payment notice", zap.Error(err))
	}

	if err := s.notifier.PaymentReleased(ctx, notification.PaymentReleasedPayload{
		JobID:           job.ID,
		Code:            job.Code,
		ContractorID:    job.ContractorID,
		ContractorEmail: email,
		Title:           job.Title,
		Payment:         job.ContractorPayment.StringFixed(2),
		ReleasedAt:      *job.PaymentReleasedDate,
	}); err != nil {
		zapLog.Error("failed to queue payment released notice", zap.Error(err))
	}
}

// ListByContractor pages through a contractor's jobs, oldest first.
func (s *Service) ListByContractor(ctx context.Context, contractorID string, page pagination.Pagination) ([]*Job, *pagination.PageInfo, error) {
	page = page.Normalize()
	if page.Cursor != "" {
		if _, err := pagination.DecodeCursor(page.Cursor); err != nil {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
	}

	rows, err := s.repo.Find(ctx, &Job{ContractorID: contractorID}, option.ApplyPagination(page))
	if err != nil {
		return nil, nil, errutil.Internal("failed to list escrow jobs", err)
	}

	return pagination.BuildCursorPage(rows, page.Limit, func(j *Job) pagination.Cursor {
		return pagination.Cursor{CreatedAt: j.CreatedAt, ID: j.ID}
	})
}
