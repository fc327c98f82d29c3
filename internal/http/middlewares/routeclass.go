package middlewares

import "strings"

// RouteClass is the data-plane a request belongs to.
type RouteClass int

const (
	// RouteUnknown needs no database at all (health probes, metrics, static).
	RouteUnknown RouteClass = iota
	// RouteControl is served from the shared control database.
	RouteControl
	// RouteTenant is served from the calling tenant's own database.
	RouteTenant
)

func (c RouteClass) String() string {
	switch c {
	case RouteControl:
		return "control"
	case RouteTenant:
		return "tenant"
	default:
		return "unknown"
	}
}

// Default prefix tables. Config can override both; these cover the product's
// stock API surface.
var (
	defaultControlPrefixes = []string{
		"/api/auth",
		"/api/admin",
		"/api/tenants",
		"/api/users",
		"/api/jobs",
		"/api/notifications",
	}
	defaultTenantPrefixes = []string{
		"/api/employees",
		"/api/payroll",
		"/api/org",
		"/api/leaves",
		"/api/timesheets",
		"/api/reports",
	}
)

// Classifier maps a request path to a RouteClass by longest-prefix intent:
// control prefixes are consulted first, then tenant prefixes, and anything
// matching neither is Unknown. Classification is total; it never errors.
type Classifier struct {
	control []string
	tenant  []string
}

// NewClassifier builds a Classifier. Empty slices fall back to the defaults,
// so NewClassifier(nil, nil) is the stock product surface.
func NewClassifier(control, tenant []string) *Classifier {
	if len(control) == 0 {
		control = defaultControlPrefixes
	}
	if len(tenant) == 0 {
		tenant = defaultTenantPrefixes
	}
	return &Classifier{control: normalize(control), tenant: normalize(tenant)}
}

func normalize(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, strings.TrimRight(p, "/"))
	}
	return out
}

// Classify returns the class for a request path.
func (c *Classifier) Classify(path string) RouteClass {
	if matchAny(path, c.control) {
		return RouteControl
	}
	if matchAny(path, c.tenant) {
		return RouteTenant
	}
	return RouteUnknown
}

// matchAny matches on path-segment boundaries: /api/org matches /api/org and
// /api/org/units but not /api/organizations.
func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p {
			return true
		}
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
