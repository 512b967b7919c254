package gatekeeper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"insulead-core/pkg/celengine"
	"insulead-core/pkg/config"

	"github.com/gosimple/slug"
)

// Attribute names shared by pattern matching and CEL rules.
const (
	AttrName          = "name"
	AttrBusinessName  = "business_name"
	AttrEmail         = "email"
	AttrEmailLocal    = "email_local"
	AttrEmailDomain   = "email_domain"
	AttrPhone         = "phone"
	AttrLicenseNumber = "license_number"
	AttrRemoteAddr    = "remote_addr"
)

var ruleAttributes = []string{
	AttrName, AttrBusinessName, AttrEmail, AttrEmailLocal, AttrEmailDomain,
	AttrPhone, AttrLicenseNumber, AttrRemoteAddr,
}

var defaultDenylist = []string{
	"10minutemail.com",
	"dispostable.com",
	"getnada.com",
	"guerrillamail.com",
	"mailinator.com",
	"maildrop.cc",
	"sharklasers.com",
	"temp-mail.org",
	"tempmail.com",
	"throwawaymail.com",
	"trashmail.com",
	"yopmail.com",
}

// Names are matched after slug normalisation, so "Test Co." arrives as "test-co".
// Phones are matched on digits only and target placeholder shapes, not real exchanges.
var defaultPatterns = map[string][]string{
	AttrName:         {`^(test|admin|fake|asdf|qwerty)`},
	AttrBusinessName: {`^(test|admin|fake|asdf|qwerty)`},
	AttrEmailLocal:   {`^(test|admin|fake|asdf|noreply|no-reply)`},
	AttrPhone: {
		`^(0+|1+|2+|3+|4+|5+|6+|7+|8+|9+)$`,
		`^1?(0123456789|1234567890)$`,
		`^1?(000|111)\d{7}$`,
		`^1?\d{3}55501\d{2}$`,
		`^1?\d{6}0000$`,
	},
	AttrLicenseNumber: {`(?i)^(test|none|n/?a|0+|1+|123456)$`},
}

// Policy is the full set of thresholds and heuristics applied to a submission.
// A Policy is immutable once built; swap it with Service.SetPolicy.
type Policy struct {
	MinDwell      time.Duration
	RateWindow    time.Duration
	MaxPerAddress int64
	AddressWindow time.Duration
	RequireMX     bool
	Denylist      []string
	Patterns      map[string][]*regexp.Regexp
	Rules         []*celengine.Program
}

type PolicyConfig struct {
	MinDwell      time.Duration
	RateWindow    time.Duration
	MaxPerAddress int64
	AddressWindow time.Duration
	RequireMX     bool
	Denylist      []string
	Patterns      map[string][]string
	Rules         []string
}

func NewPolicy(pc PolicyConfig) (*Policy, error) {
	p := &Policy{
		MinDwell:      pc.MinDwell,
		RateWindow:    pc.RateWindow,
		MaxPerAddress: pc.MaxPerAddress,
		AddressWindow: pc.AddressWindow,
		RequireMX:     pc.RequireMX,
		Patterns:      make(map[string][]*regexp.Regexp, len(pc.Patterns)),
	}

	for _, d := range pc.Denylist {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			p.Denylist = append(p.Denylist, d)
		}
	}

	for field, exprs := range pc.Patterns {
		for _, expr := range exprs {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("pattern for %s: %w", field, err)
			}
			p.Patterns[field] = append(p.Patterns[field], re)
		}
	}

	if len(pc.Rules) > 0 {
		env, err := celengine.NewStringEnv(ruleAttributes...)
		if err != nil {
			return nil, err
		}
		for _, expr := range pc.Rules {
			prg, err := celengine.Compile(env, expr)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", expr, err)
			}
			p.Rules = append(p.Rules, prg)
		}
	}

	return p, nil
}

// DefaultPolicyConfig merges the built-in heuristics with configured extras.
func DefaultPolicyConfig(cfg *config.Config) PolicyConfig {
	g := cfg.Gatekeeper

	pc := PolicyConfig{
		MinDwell:      g.MinDwell,
		RateWindow:    g.RateWindow,
		MaxPerAddress: g.MaxPerAddress,
		AddressWindow: g.AddressWindow,
		RequireMX:     g.RequireMX,
		Denylist:      append(append([]string{}, defaultDenylist...), g.Denylist...),
		Patterns:      make(map[string][]string, len(defaultPatterns)),
		Rules:         g.Rules,
	}
	for k, v := range defaultPatterns {
		pc.Patterns[k] = append([]string{}, v...)
	}

	if pc.MinDwell <= 0 {
		pc.MinDwell = 10 * time.Second
	}
	if pc.RateWindow <= 0 {
		pc.RateWindow = 24 * time.Hour
	}
	if pc.AddressWindow <= 0 {
		pc.AddressWindow = time.Hour
	}

	return pc
}

// Denied reports whether domain or any parent domain is on the denylist.
func (p *Policy) Denied(domain string) bool {
	domain = strings.Trim(strings.ToLower(domain), ".")
	for _, d := range p.Denylist {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// MatchPattern returns the first attribute that matches a suspicious pattern.
func (p *Policy) MatchPattern(attrs map[string]string) (string, bool) {
	for _, field := range ruleAttributes {
		value := attrs[field]
		if value == "" {
			continue
		}
		for _, re := range p.Patterns[field] {
			if re.MatchString(value) {
				return field, true
			}
		}
	}
	return "", false
}

// MatchRule returns the first operator rule that evaluates to true.
func (p *Policy) MatchRule(attrs map[string]string) (string, bool, error) {
	if len(p.Rules) == 0 {
		return "", false, nil
	}

	in := make(map[string]any, len(ruleAttributes))
	for _, field := range ruleAttributes {
		in[field] = attrs[field]
	}

	for _, prg := range p.Rules {
		hit, err := prg.Eval(in)
		if err != nil {
			return prg.Expr, false, err
		}
		if hit {
			return prg.Expr, true, nil
		}
	}
	return "", false, nil
}

func normaliseName(s string) string {
	return slug.Make(s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
