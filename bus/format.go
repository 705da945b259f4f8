// utilitário pequeno para formatação rápida/consistente de valores numéricos em headers.

package bus

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatMillis escreve a duração em milissegundos com até 3 casas, ex: "12.5".
func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', -1, 64)
}
