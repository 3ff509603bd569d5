package governance

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type KeyFunc func(r *http.Request) string

// ClientIPFunc extrai o IP do cliente.
func ClientIPFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// HeaderKeyFunc lê um header confiável preenchido pela camada de autenticação
// a montante (ex: X-User-ID). Vazio significa requisição não autenticada.
func HeaderKeyFunc(header string) KeyFunc {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(header))
	}
}

// RolePrivilegedFunc marca como privilegiada (bypass total de admissão) a
// requisição cujo header de papel é igual a role.
func RolePrivilegedFunc(header, role string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return strings.EqualFold(strings.TrimSpace(r.Header.Get(header)), role)
	}
}

// RequestID reaproveita o X-Request-ID do upstream ou gera um novo.
func RequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return uuid.NewString()
}
