package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sua-org/cam-uplink/internal/capture"
	"github.com/sua-org/cam-uplink/internal/config"
	"github.com/sua-org/cam-uplink/internal/storage"
	"github.com/sua-org/cam-uplink/internal/uploader"
)

func testConfig() config.Config {
	return config.Config{
		UploadURL:      "http://svc/upload",
		Fingerprint:    "f",
		Token:          "t",
		Method:         config.CaptureHTTP,
		SnapshotURL:    "http://cam/snap",
		PingHost:       "",
		Delay:          10 * time.Second,
		LongDelay:      60 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     2,
	}
}

type fakeBackend struct {
	snap  *capture.Snapshot
	err   error
	calls int
}

func (f *fakeBackend) Capture(ctx context.Context) (*capture.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeUploader struct {
	outcome uploader.Outcome
	calls   int
}

func (f *fakeUploader) Upload(ctx context.Context, snap *capture.Snapshot) uploader.Outcome {
	f.calls++
	return f.outcome
}

func goodSnapshot() *capture.Snapshot {
	return &capture.Snapshot{
		Data:        []byte{0xFF, 0xD8, 0x00},
		ContentType: "image/jpeg",
		TakenAt:     time.Now().UTC(),
	}
}

// runOnce roda o scheduler por exatamente um ciclo e devolve o delay que ele
// escolheu dormir.
func runOnce(t *testing.T, s *Scheduler) time.Duration {
	t.Helper()

	var slept time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = d
		return false // simula shutdown após o primeiro ciclo
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	return slept
}

func TestCycleSuccessSleepsNormalDelay(t *testing.T) {
	cfg := testConfig()
	backend := &fakeBackend{snap: goodSnapshot()}
	up := &fakeUploader{outcome: uploader.Outcome{Success: true, StatusCode: 200, Attempts: 1}}

	var results []Result
	s := New(cfg, backend, up)
	s.SetNotify(func(r Result) { results = append(results, r) })

	slept := runOnce(t, s)
	if slept != cfg.Delay {
		t.Fatalf("slept %s, want %s", slept, cfg.Delay)
	}
	if backend.calls != 1 || up.calls != 1 {
		t.Fatalf("calls: capture=%d upload=%d, want 1/1", backend.calls, up.calls)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
}

// Captura falhando nunca chega no uploader e sempre cai no delay longo.
func TestCaptureFailureSkipsUploadAndBacksOff(t *testing.T) {
	cfg := testConfig()
	backend := &fakeBackend{err: &capture.Error{Kind: capture.KindTimeout}}
	up := &fakeUploader{outcome: uploader.Outcome{Success: true}}

	s := New(cfg, backend, up)
	slept := runOnce(t, s)

	if up.calls != 0 {
		t.Fatalf("uploader called %d times, want 0", up.calls)
	}
	if slept != cfg.LongDelay {
		t.Fatalf("slept %s, want %s", slept, cfg.LongDelay)
	}
}

func TestUploadFailureBacksOff(t *testing.T) {
	cfg := testConfig()
	backend := &fakeBackend{snap: goodSnapshot()}
	up := &fakeUploader{outcome: uploader.Outcome{
		Success:    false,
		StatusCode: 500,
		Attempts:   3,
		LastError:  errors.New("upload rejected with status 500"),
	}}

	var results []Result
	s := New(cfg, backend, up)
	s.SetNotify(func(r Result) { results = append(results, r) })

	slept := runOnce(t, s)
	if slept != cfg.LongDelay {
		t.Fatalf("slept %s, want %s", slept, cfg.LongDelay)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Success || res.Stage != StageUpload || res.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// Ping falhando é só diagnóstico: o ciclo roda do mesmo jeito.
func TestProbeFailureDoesNotBlockCycle(t *testing.T) {
	cfg := testConfig()
	cfg.PingHost = "printer.local"
	backend := &fakeBackend{snap: goodSnapshot()}
	up := &fakeUploader{outcome: uploader.Outcome{Success: true, Attempts: 1}}

	var results []Result
	s := New(cfg, backend, up)
	s.SetProbe(func(ctx context.Context, host string) bool { return false })
	s.SetNotify(func(r Result) { results = append(results, r) })

	runOnce(t, s)
	if backend.calls != 1 || up.calls != 1 {
		t.Fatalf("cycle skipped: capture=%d upload=%d", backend.calls, up.calls)
	}
	if len(results) != 1 || results[0].Reachable {
		t.Fatalf("probe result not reported: %+v", results)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	cfg := testConfig()
	backend := &fakeBackend{snap: goodSnapshot()}
	up := &fakeUploader{outcome: uploader.Outcome{Success: true}}

	s := New(cfg, backend, up)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop on canceled context")
	}
	if backend.calls != 0 {
		t.Fatalf("cycle started after shutdown: %d captures", backend.calls)
	}
}

type fakeStore struct {
	saves int32
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	atomic.AddInt32(&f.saves, 1)
	return "http://minio/" + key, nil
}

func TestSuccessfulCaptureIsArchived(t *testing.T) {
	store := &fakeStore{}
	storage.DefaultStore = store
	defer func() { storage.DefaultStore = nil }()

	cfg := testConfig()
	backend := &fakeBackend{snap: goodSnapshot()}
	up := &fakeUploader{outcome: uploader.Outcome{Success: true}}

	s := New(cfg, backend, up)
	runOnce(t, s)

	if n := atomic.LoadInt32(&store.saves); n != 1 {
		t.Fatalf("archived %d snapshots, want 1", n)
	}
}

// Cenário completo com HTTP de verdade: GET 200 com 500 bytes, PUT 200 na
// primeira tentativa.
func TestEndToEndCycle(t *testing.T) {
	camSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(make([]byte, 500))
	}))
	defer camSrv.Close()

	var puts int32
	upSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&puts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upSrv.Close()

	cfg := testConfig()
	cfg.SnapshotURL = camSrv.URL
	cfg.UploadURL = upSrv.URL

	backend, err := capture.New(cfg)
	if err != nil {
		t.Fatalf("backend: %v", err)
	}

	var results []Result
	s := New(cfg, backend, uploader.New(cfg))
	s.SetNotify(func(r Result) { results = append(results, r) })

	slept := runOnce(t, s)
	if slept != cfg.Delay {
		t.Fatalf("slept %s, want %s", slept, cfg.Delay)
	}
	if atomic.LoadInt32(&puts) != 1 {
		t.Fatalf("upload attempts = %d, want 1", puts)
	}
	if len(results) != 1 || !results[0].Success || results[0].Attempts != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}
