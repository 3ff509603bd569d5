package governance

import (
	"net/http"
	"time"

	"governance-gateway/middleware/governance/application"
	"governance-gateway/middleware/governance/domain"
)

type Options struct {
	// Group nomeia o grupo de endpoints (ex: "expensive-ai-op"); entra nas
	// chaves de bucket e nos eventos de auditoria.
	Group string

	Limiter    domain.WindowLimiter
	IPPolicy   domain.WindowPolicy
	UserPolicy domain.WindowPolicy

	Slots          domain.SlotGranter
	MaxConcurrent  int
	AcquireTimeout time.Duration

	Audit *application.Auditor

	IPFn               KeyFunc
	UserFn             KeyFunc
	PrivilegedFn       func(r *http.Request) bool
	RequestIDFn        func(r *http.Request) string
	TrustXForwardedFor bool
	UserHeader         string
	RoleHeader         string
	PrivilegedRole     string

	// RetryAfter é a recomendação para negações de concorrência, que não têm
	// uma janela a consultar.
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

// Middleware compõe a admissão completa de um grupo de endpoints:
// janela por IP -> janela por usuário -> vaga de concorrência, com bypass
// privilegiado e evento de auditoria em cada negação.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Group == "" {
		opts.Group = "default"
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.IPFn == nil {
		opts.IPFn = ClientIPFunc(opts.TrustXForwardedFor)
	}
	if opts.UserFn == nil {
		if opts.UserHeader == "" {
			opts.UserHeader = "X-User-ID"
		}
		opts.UserFn = HeaderKeyFunc(opts.UserHeader)
	}
	if opts.PrivilegedFn == nil {
		if opts.RoleHeader == "" {
			opts.RoleHeader = "X-User-Role"
		}
		if opts.PrivilegedRole == "" {
			opts.PrivilegedRole = "admin"
		}
		opts.PrivilegedFn = RolePrivilegedFunc(opts.RoleHeader, opts.PrivilegedRole)
	}
	if opts.RequestIDFn == nil {
		opts.RequestIDFn = RequestID
	}

	adm := application.AdmissionService{
		Group:      opts.Group,
		Limiter:    opts.Limiter,
		IPPolicy:   opts.IPPolicy,
		UserPolicy: opts.UserPolicy,
	}
	conc := application.ConcurrencyService{
		Slots:          opts.Slots,
		Max:            opts.MaxConcurrent,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := opts.IPFn(r)
			user := opts.UserFn(r)
			privileged := opts.PrivilegedFn(r)
			reqID := opts.RequestIDFn(r)
			r = r.WithContext(application.ContextWithRequestID(r.Context(), reqID))

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Group", opts.Group)
				if opts.UserPolicy.Limit > 0 {
					w.Header().Set("X-RateLimit-Limit", formatInt(opts.UserPolicy.Limit))
					w.Header().Set("X-RateLimit-Window", formatInt(int(opts.UserPolicy.Window.Seconds())))
				}
			}

			res := adm.Decide(application.AdmissionRequest{
				UserID:     user,
				IP:         ip,
				Privileged: privileged,
			})
			if !res.Allowed {
				secs := int(res.RetryAfter.Seconds())
				opts.Audit.Emit(r.Context(), application.Event{
					RequestID:  reqID,
					Group:      opts.Group,
					Type:       domain.EventRateLimited,
					StatusCode: http.StatusTooManyRequests,
					RetryAfter: res.RetryAfter,
					UserID:     user,
					IP:         ip,
				})
				writeTooManyRequests(w, secs)
				return
			}

			if opts.MaxConcurrent > 0 && opts.Slots != nil && !privileged {
				// sem usuário autenticado o orçamento de vagas cai para o IP
				slotOwner := user
				if slotOwner == "" {
					slotOwner = ip
				}
				release, ok := conc.Acquire(r.Context(), domain.Key(opts.Group+":"+slotOwner))
				if !ok {
					opts.Audit.Emit(r.Context(), application.Event{
						RequestID:  reqID,
						Group:      opts.Group,
						Type:       domain.EventConcurrencyRejected,
						StatusCode: http.StatusTooManyRequests,
						RetryAfter: opts.RetryAfter,
						UserID:     user,
						IP:         ip,
					})
					writeTooManyRequests(w, int(opts.RetryAfter.Seconds()))
					return
				}
				// release roda mesmo com pânico ou cancelamento do handler
				defer release()
			}

			next.ServeHTTP(w, r)
		})
	}
}
