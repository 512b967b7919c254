package middleware

import (
	"errors"
	"strings"
	"time"

	"insulead-core/pkg/config"
	"insulead-core/pkg/errutil"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("middleware",
	fx.Provide(NewTokenVerifier, NewEnforcer),
)

const accessModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

var defaultPolicy = []string{
	"admin, /admin/*, GET|POST|PUT|PATCH|DELETE",
	"support, /admin/contractors, GET",
	"support, /admin/contractors/*, GET",
	"support, /admin/jobs/*, GET",
}

const adminClaimsKey = "admin_claims"

// AdminClaims is the payload of an operator token.
type AdminClaims struct {
	jwt.Claims
	Role string `json:"role"`
}

type TokenVerifier struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewTokenVerifier(cfg *config.Config) *TokenVerifier {
	return &TokenVerifier{
		key:    []byte(cfg.AdminAuth.SigningKey),
		issuer: cfg.AdminAuth.Issuer,
		now:    time.Now,
	}
}

func (v *TokenVerifier) Verify(raw string) (*AdminClaims, error) {
	if len(v.key) == 0 {
		return nil, errors.New("admin signing key not configured")
	}

	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, err
	}

	var claims AdminClaims
	if err := tok.Claims(v.key, &claims); err != nil {
		return nil, err
	}

	if err := claims.ValidateWithLeeway(jwt.Expected{Issuer: v.issuer, Time: v.now()}, time.Minute); err != nil {
		return nil, err
	}

	if claims.Role == "" {
		return nil, errors.New("token has no role")
	}

	return &claims, nil
}

// Issue signs an operator token. Used by tooling and tests.
func (v *TokenVerifier) Issue(subject, role string, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: v.key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", err
	}

	now := v.now()
	claims := AdminClaims{
		Claims: jwt.Claims{
			Issuer:   v.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}

	return jwt.Signed(signer).Claims(claims).Serialize()
}

func NewEnforcer(cfg *config.Config) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(accessModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	lines := cfg.AccessControl.Policy
	if len(lines) == 0 {
		lines = defaultPolicy
	}

	for _, line := range lines {
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, errors.New("invalid access policy: " + line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if _, err := e.AddPolicy(parts[0], parts[1], "^("+parts[2]+")$"); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// AdminAuth requires a valid bearer token whose role may perform the request.
func AdminAuth(v *TokenVerifier, e *casbin.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			_ = c.Error(errutil.Unauthorized("missing bearer token", nil))
			c.Abort()
			return
		}

		claims, err := v.Verify(raw)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid token", err))
			c.Abort()
			return
		}

		allowed, err := e.Enforce(claims.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			_ = c.Error(errutil.Internal("access check failed", err))
			c.Abort()
			return
		}
		if !allowed {
			zap.L().Info("admin request denied",
				zap.String("subject", claims.Subject),
				zap.String("role", claims.Role),
				zap.String("path", c.Request.URL.Path))
			_ = c.Error(errutil.Forbidden("operation not permitted", nil))
			c.Abort()
			return
		}

		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

func AdminFrom(c *gin.Context) *AdminClaims {
	v, _ := c.Get(adminClaimsKey)
	claims, _ := v.(*AdminClaims)
	return claims
}
