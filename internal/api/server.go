package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"believescreener/config"
	"believescreener/internal/metrics"
	"believescreener/logger"
)

const defaultPort = "3001"

// Server hosts the screener's JSON API together with its operational
// endpoints.
type Server struct {
	cfg             config.ServerConfig
	service         TokenService
	log             *logger.Log
	metricStore     *metricStore
	logStore        *logStore
	metricHandler   metrics.MetricHandlerID
	httpServer      *http.Server
	resourceSampler *resourceSampler
}

// NewServer wires the stores into the metric and log streams. Nothing listens
// until Run is called.
func NewServer(cfg config.ServerConfig, service TokenService, log *logger.Log) (*Server, error) {
	if service == nil {
		return nil, errors.New("api: token service is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.LogHistory <= 0 {
		cfg.LogHistory = defaultHistory
	}
	if cfg.MetricsHistory <= 0 {
		cfg.MetricsHistory = defaultHistory
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = config.Default().Server.DefaultLimit
	}

	metricStore := newMetricStore(cfg.MetricsHistory)
	handlerID := metrics.RegisterMetricHandler(metricStore.handle)

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:             cfg,
		service:         service,
		log:             log,
		metricStore:     metricStore,
		logStore:        logStore,
		metricHandler:   handlerID,
		resourceSampler: newResourceSampler(cfg.MetricsHistory, cfg.RefreshInterval, "/", log),
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// five seconds.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.resourceSampler.start(ctx)

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("api").WithFields(logger.Fields{"address": s.cfg.Address}).Info("api server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		s.log.WithComponent("api").Info("api server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logStore.close()
	s.resourceSampler.stop()
}

// Address reports the normalized listen address.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), accessLog(s.log), recovery(s.log), cors())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/api/health", s.health)
	router.GET("/api/dashboard", s.dashboard)
	router.GET("/api/tokens", s.tokens)
	router.GET("/api/tokens/known", s.knownTokens)
	router.GET("/api/token/:tokenId", s.token)
	router.GET("/api/search", s.search)

	ops := router.Group("/api/ops")
	ops.GET("/metrics", s.opsMetrics)
	ops.GET("/logs", s.opsLogs)
	ops.GET("/resources", s.opsResources)

	if metrics.PrometheusEnabled() {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not found")
	})

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:" + defaultPort
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = defaultPort
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, defaultPort)
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, defaultPort)
	}

	return addr
}
