// internal/uploader/uploader.go
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sua-org/cam-uplink/internal/capture"
	"github.com/sua-org/cam-uplink/internal/config"
)

// Outcome é o resultado completo de um upload, retries incluídos. O uploader
// nunca propaga erro pra cima: exauriu as tentativas, devolve Success=false.
type Outcome struct {
	Success    bool
	StatusCode int
	Attempts   int
	LastError  error
}

// Uploader faz o PUT autenticado no Prusa Connect com retry e backoff
// exponencial entre tentativas.
type Uploader struct {
	url         string
	fingerprint string
	token       string
	maxRetries  int
	client      *http.Client

	// backoff: base dobrando por tentativa, teto abaixo do timeout do request
	// pra não estourar o orçamento do próprio ciclo.
	backoffBase time.Duration
	backoffCap  time.Duration

	// injetável nos testes pra não dormir de verdade
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg config.Config) *Uploader {
	capDelay := cfg.RequestTimeout / 2
	base := time.Second
	if base > capDelay {
		base = capDelay
	}
	return &Uploader{
		url:         cfg.UploadURL,
		fingerprint: cfg.Fingerprint,
		token:       cfg.Token,
		maxRetries:  cfg.MaxRetries,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		backoffBase: base,
		backoffCap:  capDelay,
		sleep:       sleepCtx,
	}
}

// Upload tenta até maxRetries+1 vezes. Qualquer status fora de 2xx, erro de
// conexão ou timeout conta como tentativa falhada.
func (u *Uploader) Upload(ctx context.Context, snap *capture.Snapshot) Outcome {
	var (
		lastErr    error
		lastStatus int
		attempts   int
	)

	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if attempt > 0 {
			delay := u.backoffFor(attempt)
			log.Printf("[uploader] retry %d/%d in %s", attempt, u.maxRetries, delay)
			if !u.sleep(ctx, delay) {
				break
			}
		}

		attempts++
		status, err := u.attempt(ctx, snap)
		lastStatus = status
		if err == nil {
			log.Printf("[uploader] snapshot uploaded (status %d, attempt %d)", status, attempts)
			return Outcome{Success: true, StatusCode: status, Attempts: attempts}
		}

		lastErr = err
		log.Printf("[uploader] attempt %d/%d failed: %v", attempts, u.maxRetries+1, err)

		if ctx.Err() != nil {
			break
		}
	}

	return Outcome{
		Success:    false,
		StatusCode: lastStatus,
		Attempts:   attempts,
		LastError:  lastErr,
	}
}

func (u *Uploader) attempt(ctx context.Context, snap *capture.Snapshot) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.url, bytes.NewReader(snap.Data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("content-type", snap.ContentType)
	req.Header.Set("fingerprint", u.fingerprint)
	req.Header.Set("token", u.token)
	req.ContentLength = int64(len(snap.Data))

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// O Connect costuma explicar a recusa no corpo; vale logar um pedaço.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return resp.StatusCode, fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, msg)
		}
		return resp.StatusCode, fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// backoffFor devolve o delay antes da tentativa n (n >= 1): base * 2^(n-1),
// limitado ao teto.
func (u *Uploader) backoffFor(attempt int) time.Duration {
	d := u.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= u.backoffCap {
			return u.backoffCap
		}
	}
	if d > u.backoffCap {
		return u.backoffCap
	}
	return d
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
