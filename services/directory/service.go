package directory

import (
	"context"
	"errors"
	"fmt"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/db/option"
	"insulead-core/pkg/db/pagination"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/minio"
	"insulead-core/pkg/repository"
	"insulead-core/services/lead"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/directory")

var ErrNegativeCredits = errors.New("credits must be a non-negative integer")

type Service struct {
	db         *gorm.DB
	clock      clock.Clock
	portfolio  minio.PortfolioStore
	contractor repository.Repository[Contractor]
	user       repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Clock     clock.Clock
	Portfolio minio.PortfolioStore `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		clock:      p.Clock,
		portfolio:  p.Portfolio,
		contractor: repository.ProvideStore[Contractor](p.DB),
		user:       repository.ProvideStore[User](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Contractor, error) {
	return s.GetTx(ctx, s.db, id)
}

func (s *Service) GetTx(ctx context.Context, tx *gorm.DB, id string) (*Contractor, error) {
	c, err := s.contractor.WithTrx(tx).FindOne(ctx, &Contractor{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load contractor", err)
	}
	if c == nil {
		return nil, errutil.NotFound("contractor not found", nil)
	}
	return c, nil
}

// ApprovedTx returns the approved contractors among ids, in no particular order.
func (s *Service) ApprovedTx(ctx context.Context, tx *gorm.DB, ids []string) ([]*Contractor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := s.contractor.WithTrx(tx).Find(ctx, &Contractor{Status: StatusApproved},
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.IN, Value: ids}))
	if err != nil {
		return nil, errutil.Internal("failed to load contractors", err)
	}
	return out, nil
}

// ListApproved returns every contractor currently eligible for routing.
func (s *Service) ListApproved(ctx context.Context) ([]*Contractor, error) {
	out, err := s.contractor.Find(ctx, &Contractor{Status: StatusApproved}, option.WithSortBy(option.QuerySortBy{}))
	if err != nil {
		return nil, errutil.Internal("failed to load contractors", err)
	}
	return out, nil
}

// SetStatus moves a contractor along the administrative lifecycle. Setting the
// current status again is a no-op.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (*Contractor, error) {
	ctx, span := tracer.Start(ctx, "directory.SetStatus")
	defer span.End()

	zapLog := logger.WithTrace(ctx).With(zap.String("contractor_id", id), zap.String("to", string(to)))

	if !to.Valid() {
		return nil, errutil.ValidationFailed("unknown status", nil,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: "oneof"}))
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Status == to {
		return current, nil
	}

	if !CanTransition(current.Status, to) {
		zapLog.Info("status transition refused", zap.String("from", string(current.Status)))
		return nil, errutil.UnprocessableEntity(
			fmt.Sprintf("cannot change status from %s to %s", current.Status, to), nil)
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Model(&Contractor{}).
		Where("id = ? AND status = ?", id, current.Status).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		zapLog.Error("failed to update contractor status", zap.Error(res.Error))
		return nil, errutil.Internal("failed to update status", res.Error)
	}

	if res.RowsAffected == 0 {
		latest, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if latest.Status == to {
			return latest, nil
		}
		return nil, errutil.Conflict("contractor status changed concurrently", nil)
	}

	zapLog.Info("contractor status changed", zap.String("from", string(current.Status)))
	current.Status = to
	current.UpdatedAt = now
	return current, nil
}

func (s *Service) SetCredits(ctx context.Context, id string, amount int64) (*Contractor, error) {
	if amount < 0 {
		return nil, errutil.ValidationFailed("credits must be a non-negative integer", ErrNegativeCredits,
			errutil.WithDetails(errutil.Detail{Field: "credits", Message: "gte"}))
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Model(&Contractor{}).
		Where("id = ?", id).
		Updates(map[string]any{"credits": amount, "updated_at": now})
	if res.Error != nil {
		return nil, errutil.Internal("failed to update credits", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errutil.NotFound("contractor not found", nil)
	}

	logger.WithTrace(ctx).Info("contractor credits set", zap.String("contractor_id", id), zap.Int64("credits", amount))
	return s.Get(ctx, id)
}

// Delete purges a contractor, its owning user and its lead assignments in one
// transaction. Invitations, quotes and escrow jobs are kept as audit records.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "directory.Delete")
	defer span.End()

	zapLog := logger.WithTrace(ctx).With(zap.String("contractor_id", id))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.contractor.WithTrx(tx).FindOne(ctx, &Contractor{ID: id}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if c == nil {
			return errutil.NotFound("contractor not found", nil)
		}

		if err := tx.Where("contractor_id = ?", id).Delete(&lead.Assignment{}).Error; err != nil {
			return fmt.Errorf("delete lead assignments: %w", err)
		}

		if _, err := s.contractor.WithTrx(tx).Delete(ctx, &Contractor{ID: id}); err != nil {
			return fmt.Errorf("delete contractor: %w", err)
		}

		if _, err := s.user.WithTrx(tx).Delete(ctx, &User{ID: c.UserID}); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		return nil
	})
	if err != nil {
		if errutil.Is(err, errutil.StatusNotFound) {
			return err
		}
		zapLog.Error("failed to delete contractor", zap.Error(err))
		return errutil.Internal("failed to delete contractor", err)
	}

	zapLog.Info("contractor deleted")

	if s.portfolio != nil {
		if err := s.portfolio.RemoveContractor(ctx, id); err != nil {
			zapLog.Warn("failed to purge contractor uploads", zap.Error(err))
		}
	}

	return nil
}

// ListByStatus pages through contractors in creation order.
func (s *Service) ListByStatus(ctx context.Context, status Status, page pagination.Pagination) ([]*Contractor, *pagination.PageInfo, error) {
	if !status.Valid() {
		return nil, nil, errutil.ValidationFailed("unknown status", nil,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: "oneof"}))
	}

	page = page.Normalize()
	if page.Cursor != "" {
		if _, err := pagination.DecodeCursor(page.Cursor); err != nil {
			return nil, nil, errutil.ValidationFailed("invalid cursor", err)
		}
	}

	rows, err := s.contractor.Find(ctx, &Contractor{Status: status}, option.ApplyPagination(page))
	if err != nil {
		return nil, nil, errutil.Internal("failed to list contractors", err)
	}

	out, info, err := pagination.BuildCursorPage(rows, page.Limit, func(c *Contractor) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	if err != nil {
		return nil, nil, errutil.Internal("failed to build page", err)
	}

	return out, info, nil
}
