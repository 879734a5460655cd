// internal/capture/capture.go
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/sua-org/cam-uplink/internal/config"
)

// Snapshot é um frame JPEG pronto para upload. Vive só dentro de um ciclo.
type Snapshot struct {
	Data        []byte
	ContentType string
	TakenAt     time.Time
}

// Backend captura um único frame por chamada. Sem retry interno: falha de
// captura encerra o ciclo, quem decide o que fazer é o scheduler.
type Backend interface {
	Capture(ctx context.Context) (*Snapshot, error)
}

// Kind classifica a falha de captura para o log e para o status publicado.
type Kind string

const (
	KindConnectionFailed Kind = "connection_failed"
	KindTimeout          Kind = "timeout"
	KindNonSuccessStatus Kind = "non_success_status"
	KindEmptyBody        Kind = "empty_body"
	KindStreamOpenFailed Kind = "stream_open_failed"
	KindFrameReadFailed  Kind = "frame_read_failed"
	KindEncodeFailed     Kind = "encode_failed"
)

// Error é sempre o tipo devolvido por um Backend; nada escapa sem ser
// classificado.
type Error struct {
	Kind   Kind
	Status int // preenchido apenas em non_success_status
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindNonSuccessStatus {
		return fmt.Sprintf("capture failed (%s, status %d)", e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("capture failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("capture failed (%s)", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extrai o Kind de um erro de captura ("unknown" se não for um *Error).
func KindOf(err error) Kind {
	if ce, ok := err.(*Error); ok {
		return ce.Kind
	}
	return Kind("unknown")
}

// New escolhe o backend uma única vez na subida, conforme o método configurado.
func New(cfg config.Config) (Backend, error) {
	switch cfg.Method {
	case config.CaptureHTTP:
		return NewHTTPSnapshot(cfg.SnapshotURL, cfg.RequestTimeout), nil
	case config.CaptureRTSP:
		return NewRTSPFrame(cfg.RTSPURL, cfg.RTSPTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported capture method: %s", cfg.Method)
	}
}
