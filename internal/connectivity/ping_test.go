package connectivity

import (
	"context"
	"testing"
)

func TestProbeEmptyHost(t *testing.T) {
	if !Probe(context.Background(), "") {
		t.Fatal("empty host should be treated as nothing to check")
	}
}

// Host inexistente não pode virar erro: o contrato é só true/false.
func TestProbeUnreachableHost(t *testing.T) {
	if Probe(context.Background(), "no-such-host.invalid") {
		t.Fatal("unreachable host reported as reachable")
	}
}
