package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds each dependency check.
const DefaultTimeout = 2 * time.Second

const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// RedisChecker pings a redis client.
func RedisChecker(client redis.UniversalClient) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// Dependency is the outcome of one check.
type Dependency struct {
	Status    string `enum:"healthy,unhealthy" json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

type Response struct {
	Status int
	Body   struct {
		Status       string                `enum:"ok,degraded" json:"status"`
		Dependencies map[string]Dependency `json:"dependencies"`
	}
}

// Handler serves GET /health. All checks run concurrently; any failure
// turns the answer into 503 degraded.
type Handler struct {
	checkers map[string]Checker
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHandler(checkers map[string]Checker, logger *zap.Logger) *Handler {
	return &Handler{
		checkers: checkers,
		timeout:  DefaultTimeout,
		logger:   logger,
	}
}

func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	var (
		mu   sync.Mutex
		deps = make(map[string]Dependency, len(h.checkers))
	)

	g, ctx := errgroup.WithContext(ctx)

	for name, checker := range h.checkers {
		g.Go(func() error {
			dep := h.ping(ctx, name, checker)

			mu.Lock()
			deps[name] = dep
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	resp := &Response{Status: http.StatusOK}
	resp.Body.Status = StatusOK
	resp.Body.Dependencies = deps

	for _, dep := range deps {
		if dep.Status != StatusHealthy {
			resp.Status = http.StatusServiceUnavailable
			resp.Body.Status = StatusDegraded
		}
	}

	return resp, nil
}

func (h *Handler) ping(ctx context.Context, name string, checker Checker) Dependency {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := checker.Ping(ctx)
	dep := Dependency{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}

	if err != nil {
		h.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		dep.Status = StatusUnhealthy
	}

	return dep
}

func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"Health"},
		Responses: map[string]*huma.Response{
			"503": {Description: "A dependency is unreachable"},
		},
	}, h.Check)
}
