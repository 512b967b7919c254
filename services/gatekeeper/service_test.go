package gatekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/config"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/middleware"
	"insulead-core/services/directory"
	"insulead-core/services/notification"
	"insulead-core/services/notification/mock"
	"insulead-core/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type fakeThrottle struct{ n int64 }

func (f *fakeThrottle) Hit(context.Context, string, time.Duration) (int64, error) {
	f.n++
	return f.n, nil
}

type fakeMX struct{ ok bool }

func (f fakeMX) HasMX(context.Context, string) (bool, error) { return f.ok, nil }

type fixture struct {
	db       *gorm.DB
	svc      *Service
	clock    *clock.Fake
	notifier *mock.MockNotifier
}

func newFixture(t *testing.T, opts ...func(*ServiceParams)) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, &directory.User{}, &directory.Contractor{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	n := mock.NewMockNotifier(gomock.NewController(t))

	cfg := &config.Config{}
	cfg.Gatekeeper.MaxPerAddress = 5

	p := ServiceParams{DB: db, Node: node, Clock: clk, Config: cfg, Notifier: n}
	for _, o := range opts {
		o(&p)
	}

	svc, err := NewService(p)
	require.NoError(t, err)
	svc.hashCost = bcrypt.MinCost

	return &fixture{db: db, svc: svc, clock: clk, notifier: n}
}

func (f *fixture) submission() Submission {
	return Submission{
		Name:          "Jane Moreau",
		BusinessName:  "Acme Insulation",
		Email:         "Jane@Acme-Insulation.com",
		Phone:         "(208) 384-9276",
		LicenseNumber: "ID-RCE-48213",
		Password:      "correct horse battery",
		FormStartedAt: f.clock.Now().Add(-30 * time.Second).UnixMilli(),
		RemoteAddr:    "203.0.113.7",
	}
}

func requireRejected(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errutil.CodeOf(err))
	if code == errutil.StatusPolicyRejected {
		require.Equal(t, msgRejected, err.(errutil.BaseError).Message)
	}
}

func TestHoneypotAlwaysRejects(t *testing.T) {
	f := newFixture(t)

	sub := Submission{Website: "http://spam.example", FormStartedAt: f.clock.Now().Add(-time.Minute).UnixMilli()}
	_, err := f.svc.Register(context.Background(), sub)
	requireRejected(t, err, errutil.StatusPolicyRejected)

	sub = f.submission()
	sub.Website = "x"
	_, err = f.svc.Register(context.Background(), sub)
	requireRejected(t, err, errutil.StatusPolicyRejected)
}

func TestDwellTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := f.submission()
	sub.Email = "test@example.com"
	sub.FormStartedAt = f.clock.Now().Add(-2 * time.Second).UnixMilli()
	_, err := f.svc.Register(ctx, sub)
	requireRejected(t, err, errutil.StatusPolicyRejected)

	sub = f.submission()
	sub.FormStartedAt = 0
	_, err = f.svc.Register(ctx, sub)
	requireRejected(t, err, errutil.StatusPolicyRejected)

	sub = f.submission()
	sub.FormStartedAt = f.clock.Now().Add(time.Minute).UnixMilli()
	_, err = f.svc.Register(ctx, sub)
	requireRejected(t, err, errutil.StatusPolicyRejected)

	// bots are rejected as bots even with garbage fields
	_, err = f.svc.Register(ctx, Submission{FormStartedAt: f.clock.Now().Add(-time.Second).UnixMilli()})
	requireRejected(t, err, errutil.StatusPolicyRejected)
}

func TestValidation(t *testing.T) {
	f := newFixture(t)

	sub := f.submission()
	sub.Email = "not-an-email"
	sub.Password = "short"
	_, err := f.svc.Register(context.Background(), sub)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	fields := []string{}
	for _, d := range be.Details {
		fields = append(fields, d.Field)
	}
	require.ElementsMatch(t, []string{"email", "password"}, fields)
}

func TestHeuristics(t *testing.T) {
	cases := map[string]func(*Submission){
		"disposable domain": func(s *Submission) { s.Email = "jane@mailinator.com" },
		"disposable sub":    func(s *Submission) { s.Email = "jane@inbox.yopmail.com" },
		"test name":         func(s *Submission) { s.Name = "Test User" },
		"admin business":    func(s *Submission) { s.BusinessName = "ADMIN Co." },
		"test local part":   func(s *Submission) { s.Email = "testing@acme-insulation.com" },
		"placeholder phone": func(s *Submission) { s.Phone = "208-555-0100" },
		"license":           func(s *Submission) { s.LicenseNumber = "N/A" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			sub := f.submission()
			mutate(&sub)
			_, err := f.svc.Register(context.Background(), sub)
			requireRejected(t, err, errutil.StatusPolicyRejected)
		})
	}
}

func TestPhonePatterns(t *testing.T) {
	p, err := NewPolicy(DefaultPolicyConfig(&config.Config{}))
	require.NoError(t, err)

	placeholders := []string{"208-555-0100", "(555) 555-5555", "000-000-0000", "1234567890", "+1 (111) 234-5678", "617-253-0000"}
	for _, phone := range placeholders {
		_, hit := p.MatchPattern(map[string]string{AttrPhone: digitsOnly(phone)})
		require.True(t, hit, phone)
	}

	real := []string{"(617) 253-1000", "(415) 111-2342", "(312) 555-7312", "+1 208 384 9276"}
	for _, phone := range real {
		_, hit := p.MatchPattern(map[string]string{AttrPhone: digitsOnly(phone)})
		require.False(t, hit, phone)
	}
}

func TestSetPolicyRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pc := DefaultPolicyConfig(&config.Config{})
	pc.Rules = []string{`email_domain == "acme-insulation.com" && remote_addr.startsWith("203.0.113.")`}
	p, err := NewPolicy(pc)
	require.NoError(t, err)
	f.svc.SetPolicy(p)

	_, err = f.svc.Register(ctx, f.submission())
	requireRejected(t, err, errutil.StatusPolicyRejected)

	pc.Rules = []string{`email_domain + 1`}
	_, err = NewPolicy(pc)
	require.Error(t, err)
}

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var token string
	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p notification.VerificationPayload) error {
			require.Equal(t, "jane@acme-insulation.com", p.Email)
			require.Len(t, p.Token, 43)
			token = p.Token
			return nil
		})

	reg, err := f.svc.Register(ctx, f.submission())
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().Add(24*time.Hour), reg.ExpiresAt)

	var c directory.Contractor
	require.NoError(t, f.db.Where("user_id = ?", reg.UserID).Take(&c).Error)
	require.Equal(t, directory.StatusPending, c.Status)
	require.Equal(t, int64(0), c.Credits)

	var u directory.User
	require.NoError(t, f.db.Where("id = ?", reg.UserID).Take(&u).Error)
	require.NotEqual(t, token, *u.VerificationTokenHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse battery")))

	f.notifier.EXPECT().ApplicationReceived(gomock.Any(), notification.ApplicationPayload{
		ContractorID: c.ID,
		BusinessName: "Acme Insulation",
		Email:        "jane@acme-insulation.com",
	}).Return(nil)

	f.clock.Advance(time.Hour)
	v, err := f.svc.Verify(ctx, token)
	require.NoError(t, err)
	require.True(t, v.NotificationQueued)
	require.Equal(t, c.ID, v.ContractorID)

	_, err = f.svc.Verify(ctx, token)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestVerifyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var token string
	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p notification.VerificationPayload) error {
			token = p.Token
			return nil
		})

	_, err := f.svc.Register(ctx, f.submission())
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Verify(ctx, token)
	require.True(t, errutil.Is(err, errutil.StatusGone))

	_, err = f.svc.Verify(ctx, "unknown")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestRateLimitThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Register(ctx, f.submission())
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Register(ctx, f.submission())
	require.True(t, errutil.Is(err, errutil.StatusTooManyRequests))

	f.clock.Advance(24 * time.Hour)
	_, err = f.svc.Register(ctx, f.submission())
	require.True(t, errutil.Is(err, errutil.StatusConflict))
}

func TestAddressThrottle(t *testing.T) {
	throttle := &fakeThrottle{n: 5}
	f := newFixture(t, func(p *ServiceParams) { p.Throttle = throttle })

	_, err := f.svc.Register(context.Background(), f.submission())
	require.True(t, errutil.Is(err, errutil.StatusTooManyRequests))
}

func TestRequireMX(t *testing.T) {
	f := newFixture(t, func(p *ServiceParams) {
		p.Config.Gatekeeper.RequireMX = true
		p.MX = fakeMX{ok: false}
	})

	_, err := f.svc.Register(context.Background(), f.submission())
	requireRejected(t, err, errutil.StatusPolicyRejected)
}

func TestNotifyFailureKeepsRegistration(t *testing.T) {
	f := newFixture(t)
	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	reg, err := f.svc.Register(context.Background(), f.submission())
	require.True(t, errutil.Is(err, errutil.StatusDependencyFailed))
	require.NotNil(t, reg)

	var n int64
	require.NoError(t, f.db.Model(&directory.User{}).Where("id = ?", reg.UserID).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestRedisThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	th := NewRedisThrottle(rdb)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := th.Hit(ctx, "203.0.113.7", time.Hour)
		require.NoError(t, err)
		require.Equal(t, i, n)
	}

	mr.FastForward(time.Hour + time.Second)
	n, err := th.Hit(ctx, "203.0.113.7", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestHandlerRegister(t *testing.T) {
	f := newFixture(t)
	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(f.svc).RegisterRoutes(r.Group(""), r.Group("/admin"))

	post := func(body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).Return(nil)
	w := post(f.submission())
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"userId"`)

	w = post(f.submission())
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	sub := f.submission()
	sub.Email = "other@acme-insulation.com"
	f.notifier.EXPECT().VerificationRequested(gomock.Any(), gomock.Any()).Return(errors.New("down"))
	w = post(sub)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `"userId"`)

	sub.Website = "bot"
	w = post(sub)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotContains(t, w.Body.String(), "honeypot")
}
