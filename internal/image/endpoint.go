package image

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Known router path shapes, in the order they are tried.
const (
	RouteModels = "models"
	RouteBare   = "bare"
	RouteV1     = "v1"
)

const modelPlaceholder = "{model}"

var knownRoutes = map[string]string{
	RouteModels: "hf-inference/models/" + modelPlaceholder,
	RouteBare:   "hf-inference/" + modelPlaceholder,
	RouteV1:     "hf-inference/v1/models/" + modelPlaceholder,
}

var modelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)

const (
	DefaultHost        = "https://router.huggingface.co"
	DefaultModel       = "stabilityai/stable-diffusion-xl-base-1.0"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
	DefaultMaxBackoff  = 30 * time.Second
)

var DefaultRoutes = []string{RouteModels, RouteBare}

// Endpoint describes where and how inference requests are sent.
//
// Routes holds route names (see RouteModels) or templates containing
// "{model}". Templates may be absolute URLs or paths relative to Host.
// Routes[0] is the primary route and Routes[1], when present, the single
// fallback tried after a 404.
type Endpoint struct {
	Host        string
	Model       string
	Routes      []string
	Token       string
	NoCache     bool
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

func (e Endpoint) withDefaults() Endpoint {
	e.Host = lo.Ternary(e.Host != "", e.Host, DefaultHost)
	e.Model = lo.Ternary(e.Model != "", e.Model, DefaultModel)
	if len(e.Routes) == 0 {
		e.Routes = DefaultRoutes
	}
	e.Timeout = lo.Ternary(e.Timeout > 0, e.Timeout, DefaultTimeout)
	e.MaxAttempts = lo.Ternary(e.MaxAttempts > 0, e.MaxAttempts, DefaultMaxAttempts)
	e.Backoff = lo.Ternary(e.Backoff > 0, e.Backoff, DefaultBackoff)
	if e.MaxBackoff < e.Backoff {
		e.MaxBackoff = max(e.Backoff, DefaultMaxBackoff)
	}
	return e
}

// URLs resolves the primary and, if configured, fallback URLs.
func (e Endpoint) URLs() (string, string, error) {
	routes := e.Routes
	if len(routes) > 2 {
		routes = routes[:2]
	}
	urls := make([]string, 0, len(routes))
	for _, route := range routes {
		tmpl, ok := knownRoutes[route]
		if !ok {
			tmpl = route
		}
		if !strings.Contains(tmpl, modelPlaceholder) {
			return "", "", configurationError("route %q has no %s placeholder", route, modelPlaceholder)
		}
		url := strings.ReplaceAll(tmpl, modelPlaceholder, e.Model)
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			url = strings.TrimRight(e.Host, "/") + "/" + strings.TrimLeft(url, "/")
		}
		urls = append(urls, url)
	}
	if len(urls) == 0 {
		return "", "", configurationError("no inference routes configured")
	}
	if len(urls) == 1 {
		return urls[0], "", nil
	}
	return urls[0], urls[1], nil
}

// Validate checks the fields a request cannot be made without.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Token) == "" {
		return configurationError("inference token is not set")
	}
	if !modelPattern.MatchString(e.Model) {
		return configurationError("invalid model id %q", e.Model)
	}
	return nil
}
