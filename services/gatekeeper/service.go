package gatekeeper

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/config"
	"insulead-core/pkg/dns"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"
	"insulead-core/pkg/util"
	"insulead-core/services/directory"
	"insulead-core/services/notification"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("insulead-core/services/gatekeeper")

// Messages shown to applicants. They never name the heuristic that fired.
const (
	msgRejected    = "we could not accept this registration"
	msgRateLimited = "too many registration attempts, please try again later"
	msgDuplicate   = "an account with this email already exists"
)

type Service struct {
	db              *gorm.DB
	node            *snowflake.Node
	clock           clock.Clock
	notifier        notification.Notifier
	throttle        Throttle
	mx              dns.MXResolver
	validate        *validator.Validate
	policy          atomic.Pointer[Policy]
	verificationTTL time.Duration
	hashCost        int
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Clock    clock.Clock
	Config   *config.Config
	Notifier notification.Notifier
	Throttle Throttle       `optional:"true"`
	MX       dns.MXResolver `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	policy, err := NewPolicy(DefaultPolicyConfig(p.Config))
	if err != nil {
		return nil, err
	}

	ttl := p.Config.Gatekeeper.VerificationTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	s := &Service{
		db:              p.DB,
		node:            p.Node,
		clock:           p.Clock,
		notifier:        p.Notifier,
		throttle:        p.Throttle,
		mx:              p.MX,
		validate:        util.NewValidator(),
		verificationTTL: ttl,
		hashCost:        bcrypt.DefaultCost,
	}
	s.policy.Store(policy)
	return s, nil
}

// SetPolicy replaces the active policy for subsequent submissions.
func (s *Service) SetPolicy(p *Policy) {
	if p != nil {
		s.policy.Store(p)
	}
}

func (s *Service) Policy() *Policy {
	return s.policy.Load()
}

func reject(ctx context.Context, reason string, sub Submission, msg string, code errutil.CoreStatus) error {
	rejections.WithLabelValues(reason).Inc()
	logger.WithTrace(ctx).Info("registration rejected",
		zap.String("reason", reason),
		zap.String("email_domain", emailDomain(sub.Email)),
		zap.String("remote_addr", sub.RemoteAddr))
	return errutil.New(code, msg)
}

// Evaluate runs every check in order and stops at the first failure.
func (s *Service) Evaluate(ctx context.Context, sub Submission) (*Draft, error) {
	ctx, span := tracer.Start(ctx, "gatekeeper.Evaluate")
	defer span.End()

	p := s.policy.Load()
	now := s.clock.Now()

	if strings.TrimSpace(sub.Website) != "" {
		return nil, reject(ctx, reasonHoneypot, sub, msgRejected, errutil.StatusPolicyRejected)
	}

	if !dwelled(sub.FormStartedAt, now, p.MinDwell) {
		return nil, reject(ctx, reasonDwell, sub, msgRejected, errutil.StatusPolicyRejected)
	}

	if err := s.validate.Struct(sub); err != nil {
		return nil, errutil.FromValidation(err)
	}

	d := &Draft{
		Name:          strings.TrimSpace(sub.Name),
		BusinessName:  strings.TrimSpace(sub.BusinessName),
		Email:         strings.ToLower(strings.TrimSpace(sub.Email)),
		Phone:         strings.TrimSpace(sub.Phone),
		LicenseNumber: strings.TrimSpace(sub.LicenseNumber),
		Password:      sub.Password,
		RemoteAddr:    sub.RemoteAddr,
	}

	var recent int64
	if err := s.db.WithContext(ctx).Model(&directory.User{}).
		Where("email = ? AND created_at >= ?", d.Email, now.Add(-p.RateWindow)).
		Count(&recent).Error; err != nil {
		return nil, errutil.Internal("failed to check registration history", err)
	}
	if recent > 0 {
		return nil, reject(ctx, reasonRateLimit, sub, msgRateLimited, errutil.StatusTooManyRequests)
	}

	if s.throttle != nil && d.RemoteAddr != "" && p.MaxPerAddress > 0 {
		n, err := s.throttle.Hit(ctx, d.RemoteAddr, p.AddressWindow)
		if err != nil {
			logger.WithTrace(ctx).Warn("address throttle unavailable", zap.Error(err))
		} else if n > p.MaxPerAddress {
			return nil, reject(ctx, reasonAddressThrottle, sub, msgRateLimited, errutil.StatusTooManyRequests)
		}
	}

	domain := emailDomain(d.Email)
	if p.Denied(domain) {
		return nil, reject(ctx, reasonDenylist, sub, msgRejected, errutil.StatusPolicyRejected)
	}

	if p.RequireMX && s.mx != nil {
		ok, err := s.mx.HasMX(ctx, domain)
		if err != nil {
			logger.WithTrace(ctx).Warn("mx lookup failed", zap.String("domain", domain), zap.Error(err))
		} else if !ok {
			return nil, reject(ctx, reasonNoMX, sub, msgRejected, errutil.StatusPolicyRejected)
		}
	}

	attrs := map[string]string{
		AttrName:          normaliseName(d.Name),
		AttrBusinessName:  normaliseName(d.BusinessName),
		AttrEmail:         d.Email,
		AttrEmailLocal:    emailLocal(d.Email),
		AttrEmailDomain:   domain,
		AttrPhone:         digitsOnly(d.Phone),
		AttrLicenseNumber: d.LicenseNumber,
		AttrRemoteAddr:    d.RemoteAddr,
	}

	if field, hit := p.MatchPattern(attrs); hit {
		logger.WithTrace(ctx).Debug("suspicious pattern", zap.String("field", field))
		return nil, reject(ctx, reasonPattern, sub, msgRejected, errutil.StatusPolicyRejected)
	}

	expr, hit, err := p.MatchRule(attrs)
	if err != nil {
		logger.WithTrace(ctx).Error("registration rule failed", zap.String("rule", expr), zap.Error(err))
		return nil, errutil.Internal("failed to evaluate registration", err)
	}
	if hit {
		logger.WithTrace(ctx).Debug("registration rule matched", zap.String("rule", expr))
		return nil, reject(ctx, reasonRule, sub, msgRejected, errutil.StatusPolicyRejected)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&directory.User{}).
		Where("email = ?", d.Email).
		Count(&existing).Error; err != nil {
		return nil, errutil.Internal("failed to check email", err)
	}
	if existing > 0 {
		return nil, errutil.Conflict(msgDuplicate, nil)
	}

	return d, nil
}

// Register evaluates the submission, stores the user with a pending contractor
// and queues the verification email. When queueing fails the registration is
// returned together with a DEPENDENCY_FAILED error.
func (s *Service) Register(ctx context.Context, sub Submission) (*Registration, error) {
	ctx, span := tracer.Start(ctx, "gatekeeper.Register")
	defer span.End()

	zapLog := logger.WithTrace(ctx)

	d, err := s.Evaluate(ctx, sub)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), s.hashCost)
	if err != nil {
		return nil, errutil.Internal("failed to process registration", err)
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, errutil.Internal("failed to process registration", err)
	}
	tokenHash := util.HashToken(token)

	now := s.clock.Now()
	expiresAt := now.Add(s.verificationTTL)

	user := &directory.User{
		ID:                    s.node.Generate().String(),
		Email:                 d.Email,
		PasswordHash:          string(hash),
		VerificationTokenHash: &tokenHash,
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
	}
	contractor := &directory.Contractor{
		ID:            s.node.Generate().String(),
		UserID:        user.ID,
		DisplayName:   d.Name,
		BusinessName:  d.BusinessName,
		Email:         d.Email,
		Phone:         d.Phone,
		LicenseNumber: d.LicenseNumber,
		Status:        directory.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(contractor).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict(msgDuplicate, err)
		}
		zapLog.Error("failed to store registration", zap.Error(err))
		return nil, errutil.Internal("failed to store registration", err)
	}

	reg := &Registration{
		UserID:       user.ID,
		ContractorID: contractor.ID,
		Email:        user.Email,
		ExpiresAt:    expiresAt,
	}

	zapLog = zapLog.With(zap.String("user_id", user.ID), zap.String("contractor_id", contractor.ID))
	zapLog.Info("registration accepted")

	if err := s.notifier.VerificationRequested(ctx, notification.VerificationPayload{
		UserID:       user.ID,
		ContractorID: contractor.ID,
		Email:        user.Email,
		Name:         contractor.DisplayName,
		Token:        token,
		ExpiresAt:    expiresAt,
	}); err != nil {
		zapLog.Error("failed to queue verification email", zap.Error(err))
		return reg, errutil.DependencyFailed("registration saved but the verification email could not be sent", err,
			errutil.WithDetails(errutil.Detail{Field: "userId", Message: user.ID}))
	}

	return reg, nil
}

// Verify consumes an email verification token. The admin application notice is
// only queued once the address is proven.
func (s *Service) Verify(ctx context.Context, token string) (*Verification, error) {
	ctx, span := tracer.Start(ctx, "gatekeeper.Verify")
	defer span.End()

	zapLog := logger.WithTrace(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errutil.ValidationFailed("token is required", nil,
			errutil.WithDetails(errutil.Detail{Field: "token", Message: "required"}))
	}
	hash := util.HashToken(token)

	var user directory.User
	err := s.db.WithContext(ctx).Where("verification_token_hash = ?", hash).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("verification link is invalid", nil)
		}
		return nil, errutil.Internal("failed to verify email", err)
	}

	now := s.clock.Now()
	if user.VerificationExpiresAt == nil || now.After(*user.VerificationExpiresAt) {
		return nil, errutil.Gone("verification link has expired", nil)
	}

	res := s.db.WithContext(ctx).Model(&directory.User{}).
		Where("id = ? AND verification_token_hash = ? AND email_verified_at IS NULL", user.ID, hash).
		Updates(map[string]any{"email_verified_at": now, "verification_token_hash": nil})
	if res.Error != nil {
		return nil, errutil.Internal("failed to verify email", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errutil.NotFound("verification link is invalid", nil)
	}

	var c directory.Contractor
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Take(&c).Error; err != nil {
		return nil, errutil.Internal("failed to load contractor", err)
	}

	out := &Verification{UserID: user.ID, ContractorID: c.ID, VerifiedAt: now, NotificationQueued: true}

	if err := s.notifier.ApplicationReceived(ctx, notification.ApplicationPayload{
		ContractorID: c.ID,
		BusinessName: c.BusinessName,
		Email:        c.Email,
	}); err != nil {
		zapLog.Error("failed to queue application notice", zap.String("contractor_id", c.ID), zap.Error(err))
		out.NotificationQueued = false
	}

	zapLog.Info("email verified", zap.String("user_id", user.ID))
	return out, nil
}

func dwelled(startedAtMillis int64, now time.Time, threshold time.Duration) bool {
	if startedAtMillis <= 0 {
		return false
	}
	started := time.UnixMilli(startedAtMillis)
	if started.After(now) {
		return false
	}
	return now.Sub(started) >= threshold
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func emailLocal(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(email)
	}
	return strings.ToLower(email[:at])
}
