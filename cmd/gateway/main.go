package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"governance-gateway/middleware/governance"
	"governance-gateway/middleware/governance/application"
	"governance-gateway/middleware/governance/domain"
	"governance-gateway/middleware/governance/infra"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	windows := infra.NewWindowStore()
	slots := infra.NewKeyedSemaphore()

	var auditor *application.Auditor
	if cfg.auditEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.auditRedisAddr,
			Password: cfg.auditRedisPassword,
			DB:       cfg.auditRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis audit ping error: %v", err)
		}

		sink := infra.NewRedisEventLog(
			rdb,
			infra.WithEventStream(cfg.auditStream),
			infra.WithEventMaxLen(cfg.auditMaxLen),
		)
		auditor = application.NewAuditor(sink, infra.HashIdentifier,
			application.WithEmitCap(cfg.auditRate, cfg.auditBurst))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	windows.StartJanitor(ctx)

	h := http.Handler(proxy)
	h = governance.Middleware(governance.Options{
		Group:               cfg.group,
		Limiter:             windows,
		IPPolicy:            domain.WindowPolicy{Limit: cfg.ipLimit, Window: cfg.ipWindow},
		UserPolicy:          domain.WindowPolicy{Limit: cfg.userLimit, Window: cfg.userWindow},
		Slots:               slots,
		MaxConcurrent:       cfg.concurrencyMax,
		AcquireTimeout:      cfg.concurrencyTimeout,
		Audit:               auditor,
		TrustXForwardedFor:  cfg.trustXFF,
		UserHeader:          cfg.userHeader,
		RoleHeader:          cfg.roleHeader,
		PrivilegedRole:      cfg.privilegedRole,
		RetryAfter:          cfg.retryAfter,
		AddRateLimitHeaders: cfg.addHeaders,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("group=%q ip=%d/%s user=%d/%s trustXFF=%v", cfg.group, cfg.ipLimit, cfg.ipWindow, cfg.userLimit, cfg.userWindow, cfg.trustXFF)
	log.Printf("concurrency: max=%d acquireTimeout=%s", cfg.concurrencyMax, cfg.concurrencyTimeout)
	log.Printf("audit: enabled=%v redisAddr=%q stream=%q cap=%.1f/s", cfg.auditEnabled, cfg.auditRedisAddr, cfg.auditStream, cfg.auditRate)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr  string
	upstreamURL string

	group      string
	ipLimit    int
	ipWindow   time.Duration
	userLimit  int
	userWindow time.Duration

	trustXFF       bool
	userHeader     string
	roleHeader     string
	privilegedRole string
	retryAfter     time.Duration
	addHeaders     bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	auditEnabled       bool
	auditRedisAddr     string
	auditRedisPassword string
	auditRedisDB       int
	auditStream        string
	auditMaxLen        int64
	auditRate          float64
	auditBurst         int
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.group = getenvDefault("GROUP", "default")
	cfg.ipLimit = getenvIntDefault("RATE_IP_LIMIT", 100)
	cfg.ipWindow = getenvDurationDefault("RATE_IP_WINDOW", 1*time.Minute)
	cfg.userLimit = getenvIntDefault("RATE_USER_LIMIT", 30)
	cfg.userWindow = getenvDurationDefault("RATE_USER_WINDOW", 1*time.Minute)

	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.userHeader = getenvDefault("USER_HEADER", "X-User-ID")
	cfg.roleHeader = getenvDefault("ROLE_HEADER", "X-User-Role")
	cfg.privilegedRole = getenvDefault("PRIVILEGED_ROLE", "admin")
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 2)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.auditEnabled = getenvBoolDefault("AUDIT_ENABLED", false)
	cfg.auditRedisAddr = getenvDefault("AUDIT_REDIS_ADDR", "")
	cfg.auditRedisPassword = os.Getenv("AUDIT_REDIS_PASSWORD")
	cfg.auditRedisDB = getenvIntDefault("AUDIT_REDIS_DB", 0)
	cfg.auditStream = getenvDefault("AUDIT_STREAM", "governance:events")
	cfg.auditMaxLen = int64(getenvIntDefault("AUDIT_MAXLEN", 100_000))
	cfg.auditRate = getenvFloatDefault("AUDIT_RATE", 50)
	cfg.auditBurst = getenvIntDefault("AUDIT_BURST", 100)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.ipLimit < 0 || cfg.userLimit < 0 {
		return config{}, errors.New("RATE_IP_LIMIT and RATE_USER_LIMIT must be >= 0")
	}
	if cfg.ipWindow <= 0 || cfg.userWindow <= 0 {
		return config{}, errors.New("RATE_IP_WINDOW and RATE_USER_WINDOW must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.auditEnabled && strings.TrimSpace(cfg.auditRedisAddr) == "" {
		return config{}, errors.New("AUDIT_REDIS_ADDR is required when AUDIT_ENABLED=true")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
