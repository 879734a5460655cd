// internal/connectivity/ping.go
package connectivity

import (
	"context"
	"os/exec"
	"time"
)

const probeTimeout = 5 * time.Second

// Probe dispara um único ICMP echo contra o host. Resultado é só diagnóstico:
// ajuda a distinguir "impressora fora do ar" de erro na aplicação, mas nunca
// bloqueia o ciclo de captura. Qualquer erro conta como inalcançável.
func Probe(ctx context.Context, host string) bool {
	if host == "" {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", "3", host)
	return cmd.Run() == nil
}
