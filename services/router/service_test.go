package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/config"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/middleware"
	"insulead-core/services/directory"
	"insulead-core/services/invitation"
	"insulead-core/services/lead"
	"insulead-core/services/notification"
	"insulead-core/services/notification/mock"
	"insulead-core/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	clock    *clock.Fake
	notifier *mock.MockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t,
		&directory.User{}, &directory.Contractor{},
		&lead.Lead{}, &lead.Assignment{},
		&invitation.Invitation{}, &invitation.Quote{})
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	n := mock.NewMockNotifier(gomock.NewController(t))

	leads := lead.NewService(lead.ServiceParams{DB: db, Node: node, Clock: clk})
	contractors := directory.NewService(directory.ServiceParams{DB: db, Clock: clk})
	invitations := invitation.NewService(invitation.ServiceParams{
		DB: db, Node: node, Clock: clk, Notifier: n, Leads: leads, Contractors: contractors,
	})

	cfg := &config.Config{}
	svc := NewService(ServiceParams{
		DB: db, Node: node, Clock: clk, Config: cfg, Notifier: n,
		Leads: leads, Contractors: contractors, Invitations: invitations,
	})

	require.NoError(t, db.Create(&lead.Lead{ID: "l1", ContactName: "Maria Lopez", City: "Boise", CreatedAt: clk.Now()}).Error)

	return &fixture{db: db, svc: svc, clock: clk, notifier: n}
}

func (f *fixture) contractor(t *testing.T, id string, status directory.Status) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&directory.Contractor{
		ID: id, UserID: "u-" + id, DisplayName: "Crew " + id, Email: id + "@crew.test",
		Status: status, CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestRouteDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contractor(t, "c1", directory.StatusApproved)
	f.contractor(t, "c2", directory.StatusPending)

	f.notifier.EXPECT().LeadAssigned(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p notification.LeadAssignedPayload) error {
			require.Equal(t, "c1@crew.test", p.ContractorEmail)
			return nil
		})

	a, err := f.svc.RouteDirect(ctx, "l1", "c1")
	require.NoError(t, err)
	require.Equal(t, "c1", a.ContractorID)
	require.Zero(t, f.count(t, &invitation.Invitation{}))

	var l lead.Lead
	require.NoError(t, f.db.Where("id = ?", "l1").Take(&l).Error)
	require.Equal(t, lead.RoutingDirect, l.RoutingMode)
	require.NotNil(t, l.RoutedAt)

	_, err = f.svc.RouteDirect(ctx, "l1", "c1")
	require.True(t, errutil.Is(err, errutil.StatusConflict))

	_, err = f.svc.RouteDirect(ctx, "l1", "c2")
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	_, err = f.svc.RouteDirect(ctx, "l1", "ghost")
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	_, err = f.svc.RouteDirect(ctx, "missing", "c1")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	require.Equal(t, int64(1), f.count(t, &lead.Assignment{}))
}

func TestRouteByInvitation(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"c1", "c2", "c3"} {
		f.contractor(t, id, directory.StatusApproved)
	}

	tokens := make(chan string, 3)
	f.notifier.EXPECT().InvitationIssued(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p notification.InvitationPayload) error {
			tokens <- p.Token
			return nil
		}).Times(3)

	out, err := f.svc.RouteByInvitation(context.Background(), "l1", []string{"c1", "c2", " c2", "c3"}, 48*time.Hour)
	require.NoError(t, err)
	require.Len(t, out.Invitations, 3)
	require.Equal(t, 3, out.NotificationsQueued)
	close(tokens)

	seen := map[string]bool{}
	for tok := range tokens {
		require.False(t, seen[tok])
		seen[tok] = true
	}

	for _, inv := range out.Invitations {
		require.Equal(t, f.clock.Now().Add(48*time.Hour), inv.ExpiresAt)
	}

	var l lead.Lead
	require.NoError(t, f.db.Where("id = ?", "l1").Take(&l).Error)
	require.Equal(t, lead.RoutingInvitation, l.RoutingMode)
}

func TestRouteByInvitationAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.contractor(t, "c1", directory.StatusApproved)
	f.contractor(t, "c2", directory.StatusSuspended)

	_, err := f.svc.RouteByInvitation(ctx, "l1", []string{"c1", "c2"}, time.Hour)
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	_, err = f.svc.RouteByInvitation(ctx, "l1", nil, time.Hour)
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))

	_, err = f.svc.RouteByInvitation(ctx, "l1", []string{"c1"}, 0)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	require.Zero(t, f.count(t, &invitation.Invitation{}))

	var l lead.Lead
	require.NoError(t, f.db.Where("id = ?", "l1").Take(&l).Error)
	require.Empty(t, l.RoutingMode)
}

func TestRouteByInvitationNotifyFailure(t *testing.T) {
	f := newFixture(t)
	f.contractor(t, "c1", directory.StatusApproved)
	f.contractor(t, "c2", directory.StatusApproved)

	f.notifier.EXPECT().InvitationIssued(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p notification.InvitationPayload) error {
			if p.ContractorID == "c2" {
				return errors.New("queue down")
			}
			return nil
		}).Times(2)

	out, err := f.svc.RouteByInvitation(context.Background(), "l1", []string{"c1", "c2"}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, out.NotificationsQueued)
	require.Equal(t, int64(2), f.count(t, &invitation.Invitation{}))
}

func TestAutoRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		f.contractor(t, id, directory.StatusApproved)
	}
	f.contractor(t, "c6", directory.StatusRejected)
	f.notifier.EXPECT().InvitationIssued(gomock.Any(), gomock.Any()).Return(nil).Times(5)

	first, err := f.svc.AutoRoute(ctx, "l1", time.Hour)
	require.NoError(t, err)
	require.Len(t, first.Invitations, 3)

	second, err := f.svc.AutoRoute(ctx, "l1", time.Hour)
	require.NoError(t, err)
	require.Len(t, second.Invitations, 2)

	invited := map[string]bool{}
	for _, inv := range append(first.Invitations, second.Invitations...) {
		require.False(t, invited[inv.ContractorID])
		invited[inv.ContractorID] = true
	}
	require.False(t, invited["c6"])

	_, err = f.svc.AutoRoute(ctx, "l1", time.Hour)
	require.True(t, errutil.Is(err, errutil.StatusUnprocessableEntity))
}

func TestRandomSelector(t *testing.T) {
	pool := []*directory.Contractor{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	out := RandomSelector{}.Select(context.Background(), pool, 3)
	require.Len(t, out, 3)
	require.Equal(t, "a", pool[0].ID)

	out = RandomSelector{}.Select(context.Background(), pool[:2], 3)
	require.Len(t, out, 2)
}

func TestHandlerInvite(t *testing.T) {
	f := newFixture(t)
	f.contractor(t, "c1", directory.StatusApproved)
	f.notifier.EXPECT().InvitationIssued(gomock.Any(), gomock.Any()).Return(nil)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(f.svc).RegisterRoutes(r.Group(""), r.Group("/admin"))

	req := httptest.NewRequest(http.MethodPost, "/admin/leads/l1/invitations", strings.NewReader(`{"contractor_ids":["c1"],"ttl_hours":24}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotContains(t, w.Body.String(), "token")

	var inv invitation.Invitation
	require.NoError(t, f.db.Take(&inv).Error)
	require.Equal(t, f.clock.Now().Add(24*time.Hour), inv.ExpiresAt.UTC())

	req = httptest.NewRequest(http.MethodPost, "/admin/leads/l1/invitations", strings.NewReader(`{"contractor_ids":["c1"],"ttl_hours":0}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerInviteEmptyList(t *testing.T) {
	f := newFixture(t)
	f.contractor(t, "c1", directory.StatusApproved)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(f.svc).RegisterRoutes(r.Group(""), r.Group("/admin"))

	req := httptest.NewRequest(http.MethodPost, "/admin/leads/l1/invitations", strings.NewReader(`{"contractor_ids":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, int64(0), f.count(t, &invitation.Invitation{}))

	f.notifier.EXPECT().InvitationIssued(gomock.Any(), gomock.Any()).Return(nil)
	req = httptest.NewRequest(http.MethodPost, "/admin/leads/l1/invitations", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, int64(1), f.count(t, &invitation.Invitation{}))
}
