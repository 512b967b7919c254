package httpapi

import (
	"insulead-core/pkg/config"
	"insulead-core/pkg/health"
	"insulead-core/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewEngine),
)

// Route is implemented by every service handler that exposes HTTP endpoints.
// Public routes hang off the root, operator routes off /admin.
type Route interface {
	RegisterRoutes(public *gin.RouterGroup, admin *gin.RouterGroup)
}

// AsRoute annotates a handler constructor so its result joins the routes group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

type Params struct {
	fx.In
	Config   *config.Config
	Health   health.HealthService
	Verifier *middleware.TokenVerifier
	Enforcer *casbin.Enforcer
	Routes   []Route `group:"routes"`
}

func NewEngine(p Params) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Recovery(),
		middleware.Error(),
	)

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("")
	admin := r.Group("/admin", middleware.AdminAuth(p.Verifier, p.Enforcer))
	for _, route := range p.Routes {
		route.RegisterRoutes(public, admin)
	}

	return r
}
