package governance

import (
	"encoding/json"
	"net/http"
)

// rateLimitedBody é o contrato de resposta de falha de admissão.
type rateLimitedBody struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	w.Header().Set("Retry-After", formatInt(retryAfterSeconds))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(rateLimitedBody{
		Error:             "RATE_LIMITED",
		Message:           "too many requests, retry in " + formatInt(retryAfterSeconds) + " seconds",
		RetryAfterSeconds: retryAfterSeconds,
	})
}
