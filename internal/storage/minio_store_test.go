package storage

import (
	"strings"
	"testing"
	"time"
)

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 8, 30, 15, 4, 5, 123, time.UTC)
	key := SnapshotKey(at)

	if !strings.HasPrefix(key, "snapshots/2026/08/30/snapshot_") {
		t.Fatalf("unexpected key: %s", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("key should end in .jpg: %s", key)
	}
}

func TestSnapshotKeyPrefixOverride(t *testing.T) {
	t.Setenv("MINIO_KEY_PREFIX", "/printers/ender/")
	key := SnapshotKey(time.Now())

	if !strings.HasPrefix(key, "printers/ender/") {
		t.Fatalf("prefix not applied: %s", key)
	}
}
