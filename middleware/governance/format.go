// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers. Evita puxar fmt (que é mais “pesado” e genérico) só para isso.

package governance

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }
