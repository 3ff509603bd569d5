package infra

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIdentifier gera um pseudônimo determinístico e não reversível para um
// identificador (userId, IP) antes de qualquer logging: digest sha256 truncado
// em 16 caracteres hex. Identificador vazio vira string vazia.
func HashIdentifier(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}
