package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"governance-gateway/middleware/governance"
	"governance-gateway/middleware/governance/application"
	"governance-gateway/middleware/governance/domain"
	"governance-gateway/middleware/governance/infra"
)

// Exemplo: injetando a governança diretamente no seu webserver (sem proxy),
// incluindo um handler de mutação paga que segue o protocolo idempotente.
func main() {
	windows := infra.NewWindowStore()
	slots := infra.NewKeyedSemaphore()
	// IDEMPOTENCY_TTL precisa cobrir o handler mais lento (ex: chamada de IA
	// demorada); abaixo disso um retry tardio re-executa o efeito pago.
	actions := infra.NewMemoryIdempotencyStore(getenvDurationDefault("IDEMPOTENCY_TTL", domain.DefaultIdempotencyTTL))
	sink := infra.NewMemoryEventLog()
	auditor := application.NewAuditor(sink, infra.HashIdentifier)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	windows.StartJanitor(ctx)
	actions.StartJanitor(ctx)

	runner := application.IdempotentRunner{
		Store: actions,
		Audit: auditor,
		Group: "resume-score",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /resumes/score", func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("X-User-ID"))
		key := domain.ActionKey{
			UserID:   user,
			Endpoint: "resumes.score",
			ActionID: strings.TrimSpace(r.Header.Get("X-Action-ID")),
		}

		out, err := runner.Do(r.Context(), key, func(ctx context.Context, charge func()) (json.RawMessage, error) {
			// o trabalho caro de verdade (chamada de IA, débito de créditos)
			// entraria aqui; charge() só depois do débito confirmado.
			time.Sleep(50 * time.Millisecond)
			charge()
			result, _ := json.Marshal(map[string]any{"runId": rand.Int63()})
			return result, nil
		})

		var failed *domain.FailedBeforeError
		switch {
		case errors.Is(err, domain.ErrActionInProgress):
			http.Error(w, "identical action already in progress", http.StatusConflict)
			return
		case errors.As(err, &failed):
			http.Error(w, failed.Error(), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, "score failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if out.Replayed {
			w.Header().Set("X-Idempotent-Replay", "true")
		}
		_, _ = w.Write(out.Result)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = governance.Middleware(governance.Options{
		Group:               "resume-score",
		Limiter:             windows,
		IPPolicy:            domain.WindowPolicy{Limit: 100, Window: 1 * time.Minute},
		UserPolicy:          domain.WindowPolicy{Limit: 10, Window: 1 * time.Minute},
		Slots:               slots,
		MaxConcurrent:       1,
		Audit:               auditor,
		AddRateLimitHeaders: true,
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s (idempotency ttl=%s)", addr, actions.TTL())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
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
