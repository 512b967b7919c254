package lead

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"insulead-core/pkg/clock"
	"insulead-core/pkg/errutil"
	"insulead-core/pkg/middleware"
	"insulead-core/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newService(t *testing.T) (*Service, *clock.Fake) {
	t.Helper()
	db := testutil.NewTestDB(t, &Lead{}, &Assignment{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return NewService(ServiceParams{DB: db, Node: node, Clock: clk}), clk
}

func validInput() CreateInput {
	return CreateInput{
		ContactName:   "Maria Lopez",
		ContactEmail:  "Maria@Example.org",
		City:          "Boise",
		PostalCode:    "83702",
		ServiceAreas:  []string{"Attic", "attic ", "Crawlspace"},
		MaterialTypes: []string{"spray-foam"},
	}
}

func TestCreateLead(t *testing.T) {
	svc, clk := newService(t)

	l, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, l.ID)
	require.Equal(t, "maria@example.org", l.ContactEmail)
	require.Equal(t, []string{"attic", "crawlspace"}, []string(l.ServiceAreas))
	require.True(t, clk.Now().Equal(l.CreatedAt))

	got, err := svc.Get(context.Background(), l.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"spray-foam"}, []string(got.MaterialTypes))
	require.Empty(t, got.RoutingMode)
}

func TestCreateLeadRequiresContact(t *testing.T) {
	svc, _ := newService(t)

	in := validInput()
	in.ContactEmail = ""
	_, err := svc.Create(context.Background(), in)
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))

	in.ContactPhone = "+1 208 555 0100"
	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err)
}

func TestCreateLeadRequiresServiceArea(t *testing.T) {
	svc, _ := newService(t)

	in := validInput()
	in.ServiceAreas = nil
	_, err := svc.Create(context.Background(), in)
	require.Equal(t, errutil.StatusValidationFailed, errutil.CodeOf(err))
}

func TestGetUnknownLead(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}

func TestMarkRoutedTx(t *testing.T) {
	svc, clk := newService(t)
	ctx := context.Background()

	l, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.MarkRoutedTx(ctx, svc.db, l.ID, RoutingInvitation, clk.Now()))

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, RoutingInvitation, got.RoutingMode)
	require.NotNil(t, got.RoutedAt)

	err = svc.MarkRoutedTx(ctx, svc.db, "missing", RoutingDirect, clk.Now())
	require.Equal(t, errutil.StatusNotFound, errutil.CodeOf(err))
}

func TestCreateHandler(t *testing.T) {
	svc, _ := newService(t)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(svc).RegisterRoutes(r.Group(""), r.Group("/admin"))

	body := `{"contact_name":"Maria","contact_phone":"2085550100","city":"Boise","postal_code":"83702","service_areas":["attic"]}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "leadId")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{"city":"Boise"}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
