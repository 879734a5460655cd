// internal/capture/rtsp.go
package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"
)

const defaultFFmpegBin = "ffmpeg"

// frameStream é o handle de um stream de vídeo aberto. O contrato do backend
// exige Close em todo caminho de saída de Capture, inclusive nos de erro.
type frameStream interface {
	ReadFrame() ([]byte, error)
	Close() error
}

type openStreamFunc func(ctx context.Context, url string) (frameStream, error)

// RTSPFrame abre o stream, lê exatamente um frame JPEG e fecha. Nada fica
// aberto entre ciclos: se a câmera reiniciar, o próximo ciclo abre do zero.
type RTSPFrame struct {
	url     string
	timeout time.Duration
	open    openStreamFunc
}

func NewRTSPFrame(url string, timeout time.Duration) *RTSPFrame {
	bin := getenv("FFMPEG_BIN", defaultFFmpegBin)
	return &RTSPFrame{
		url:     url,
		timeout: timeout,
		open: func(ctx context.Context, url string) (frameStream, error) {
			return openFFmpegStream(ctx, bin, url)
		},
	}
}

func (b *RTSPFrame) Capture(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	stream, err := b.open(ctx, b.url)
	if err != nil {
		return nil, &Error{Kind: KindStreamOpenFailed, Err: err}
	}
	defer stream.Close()

	frame, err := stream.ReadFrame()
	if err != nil {
		return nil, &Error{Kind: KindFrameReadFailed, Err: err}
	}
	if len(frame) == 0 {
		return nil, &Error{Kind: KindFrameReadFailed, Err: fmt.Errorf("empty frame from %s", b.url)}
	}
	if !isJPEG(frame) {
		return nil, &Error{Kind: KindEncodeFailed, Err: fmt.Errorf("output is not a JPEG image")}
	}

	log.Printf("[capture] rtsp frame ok (%d bytes)", len(frame))

	return &Snapshot{
		Data:        frame,
		ContentType: "image/jpeg",
		TakenAt:     time.Now().UTC(),
	}, nil
}

// ffmpegStream roda um ffmpeg de vida curta que conecta no RTSP, decodifica um
// frame e escreve o JPEG no stdout.
type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	waited bool
}

func openFFmpegStream(ctx context.Context, bin, url string) (frameStream, error) {
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", url,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "4",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	s := &ffmpegStream{cmd: cmd, stdout: stdout}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ffmpegStream) ReadFrame() ([]byte, error) {
	data, readErr := io.ReadAll(s.stdout)
	waitErr := s.cmd.Wait()
	s.waited = true

	if readErr != nil {
		return nil, readErr
	}
	if waitErr != nil {
		msg := strings.TrimSpace(s.stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("ffmpeg: %w: %s", waitErr, msg)
		}
		return nil, fmt.Errorf("ffmpeg: %w", waitErr)
	}
	return data, nil
}

func (s *ffmpegStream) Close() error {
	if s.waited {
		return nil
	}
	s.waited = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
