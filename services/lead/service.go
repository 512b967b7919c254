package lead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/repository"
	"insulead-core/pkg/util"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/lead")

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    clock.Clock
	validate *validator.Validate
	repo     repository.Repository[Lead]
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		clock:    p.Clock,
		validate: util.NewValidator(),
		repo:     repository.ProvideStore[Lead](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Lead, error) {
	ctx, span := tracer.Start(ctx, "lead.Create")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, errutil.FromValidation(err)
	}

	l := &Lead{
		ID:            s.node.Generate().String(),
		ContactName:   strings.TrimSpace(in.ContactName),
		ContactEmail:  strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactPhone:  strings.TrimSpace(in.ContactPhone),
		Address:       in.Address,
		City:          in.City,
		Region:        in.Region,
		PostalCode:    strings.TrimSpace(in.PostalCode),
		ServiceAreas:  datatypes.NewJSONSlice(normalizeTags(in.ServiceAreas)),
		MaterialTypes: datatypes.NewJSONSlice(normalizeTags(in.MaterialTypes)),
		Notes:         in.Notes,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.Create(ctx, l); err != nil {
		logger.WithTrace(ctx).Error("failed to create lead", zap.Error(err))
		return nil, errutil.Internal("failed to create lead", err)
	}

	logger.WithTrace(ctx).Info("lead created", zap.String("lead_id", l.ID), zap.Strings("service_areas", l.ServiceAreas))
	return l, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	return s.GetTx(ctx, s.db, id)
}

// GetTx reads a lead through tx so callers inside a transaction keep using the
// same connection.
func (s *Service) GetTx(ctx context.Context, tx *gorm.DB, id string) (*Lead, error) {
	l, err := s.repo.WithTrx(tx).FindOne(ctx, &Lead{ID: id})
	if err != nil {
		return nil, errutil.Internal("failed to load lead", err)
	}
	if l == nil {
		return nil, errutil.NotFound("lead not found", nil)
	}
	return l, nil
}

// MarkRoutedTx records how and when the lead was routed.
func (s *Service) MarkRoutedTx(ctx context.Context, tx *gorm.DB, id string, mode RoutingMode, at time.Time) error {
	res := tx.WithContext(ctx).Model(&Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{"routing_mode": mode, "routed_at": at})
	if res.Error != nil {
		return fmt.Errorf("mark lead routed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("lead not found", nil)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
