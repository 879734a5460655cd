// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/sua-org/cam-uplink/internal/capture"
	"github.com/sua-org/cam-uplink/internal/config"
	"github.com/sua-org/cam-uplink/internal/storage"
	"github.com/sua-org/cam-uplink/internal/uploader"
)

// Stage indica onde o ciclo falhou.
type Stage string

const (
	StageCapture Stage = "capture"
	StageUpload  Stage = "upload"
)

// Result resume um ciclo completo; é consumido pelo próprio scheduler pra
// escolher o delay e repassado pro hook de status, nada é persistido.
type Result struct {
	Success    bool
	Stage      Stage // vazio em sucesso
	Attempts   int
	StatusCode int
	Err        error
	Reachable  bool
	At         time.Time
}

// Uploader é o que o scheduler precisa do uploader de verdade (e dos fakes).
type Uploader interface {
	Upload(ctx context.Context, snap *capture.Snapshot) uploader.Outcome
}

// Scheduler roda o laço capture -> upload -> sleep, estritamente sequencial.
// Um ciclo nunca sobrepõe outro; o único ponto de suspensão cancelável é o
// sleep entre ciclos.
type Scheduler struct {
	cfg     config.Config
	backend capture.Backend
	up      Uploader

	// injetáveis nos testes
	probe  func(ctx context.Context, host string) bool
	sleep  func(ctx context.Context, d time.Duration) bool
	notify func(Result)
}

func New(cfg config.Config, backend capture.Backend, up Uploader) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		backend: backend,
		up:      up,
		sleep:   sleepCtx,
	}
}

// SetProbe define o diagnóstico de conectividade (opcional).
func (s *Scheduler) SetProbe(probe func(ctx context.Context, host string) bool) {
	s.probe = probe
}

// SetNotify define o hook chamado com o resultado de cada ciclo (opcional).
func (s *Scheduler) SetNotify(notify func(Result)) {
	s.notify = notify
}

// Run executa ciclos até o contexto ser cancelado. Falha transitória nunca
// derruba o laço: só muda o delay do próximo ciclo.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[scheduler] started (delay=%s, long delay=%s)", s.cfg.Delay, s.cfg.LongDelay)

	for {
		if ctx.Err() != nil {
			log.Printf("[scheduler] context canceled, stopping")
			return nil
		}

		res := s.runCycle(ctx)
		if s.notify != nil {
			s.notify(res)
		}

		delay := s.cfg.Delay
		if res.Success {
			log.Printf("[scheduler] cycle ok, next upload in %s", delay)
		} else {
			delay = s.cfg.LongDelay
			log.Printf("[scheduler] cycle failed at %s stage, backing off for %s", res.Stage, delay)
		}

		if !s.sleep(ctx, delay) {
			log.Printf("[scheduler] shutdown requested, stopping")
			return nil
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) Result {
	res := Result{Reachable: true, At: time.Now().UTC()}

	if s.probe != nil && s.cfg.PingHost != "" {
		res.Reachable = s.probe(ctx, s.cfg.PingHost)
		if !res.Reachable {
			// Diagnóstico apenas: o ciclo segue mesmo sem ping.
			log.Printf("[scheduler] warning: %s not reachable via ping", s.cfg.PingHost)
		}
	}

	snap, err := s.backend.Capture(ctx)
	if err != nil {
		log.Printf("[scheduler] capture failed: %v", err)
		res.Stage = StageCapture
		res.Err = err
		return res
	}

	s.archiveSnapshot(ctx, snap)

	outcome := s.up.Upload(ctx, snap)
	res.Attempts = outcome.Attempts
	res.StatusCode = outcome.StatusCode
	if !outcome.Success {
		log.Printf("[scheduler] upload failed after %d attempt(s): %v", outcome.Attempts, outcome.LastError)
		res.Stage = StageUpload
		res.Err = outcome.LastError
		return res
	}

	res.Success = true
	return res
}

// archiveSnapshot guarda uma cópia no MinIO quando configurado. Falha aqui é
// só log; não interfere no upload pro Connect.
func (s *Scheduler) archiveSnapshot(ctx context.Context, snap *capture.Snapshot) {
	if storage.DefaultStore == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := storage.DefaultStore.SaveSnapshot(saveCtx, storage.SnapshotKey(snap.TakenAt), snap.Data, snap.ContentType); err != nil {
		log.Printf("[scheduler] erro ao arquivar snapshot no MinIO: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
