// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CaptureMethod seleciona a fonte da imagem (mjpeg-streamer ou stream RTSP).
type CaptureMethod string

const (
	CaptureHTTP CaptureMethod = "http"
	CaptureRTSP CaptureMethod = "rtsp"
)

// Defaults herdados do uploader original.
const (
	DefaultUploadURL   = "https://webcam.connect.prusa3d.com/c/snapshot"
	DefaultSnapshotURL = "http://localhost:8080/?action=snapshot"
	DefaultPingHost    = "prusa"
)

var (
	ErrMissingFingerprint   = errors.New("FINGERPRINT must be set")
	ErrMissingToken         = errors.New("TOKEN must be set")
	ErrInvalidCaptureMethod = errors.New("CAPTURE_METHOD must be either 'http' or 'rtsp'")
	ErrMissingSnapshotURL   = errors.New("SNAPSHOT_URL must be set when CAPTURE_METHOD is 'http'")
	ErrMissingRTSPURL       = errors.New("RTSP_URL must be set when CAPTURE_METHOD is 'rtsp'")
	ErrInvalidTiming        = errors.New("timing values must be positive")
	ErrInvalidMaxRetries    = errors.New("MAX_RETRIES must be >= 0")
)

// Config é imutável depois de validado; nenhum componente escreve nele.
type Config struct {
	UploadURL   string
	Fingerprint string
	Token       string

	Method      CaptureMethod
	SnapshotURL string
	RTSPURL     string
	RTSPTimeout time.Duration

	PingHost string

	Delay     time.Duration
	LongDelay time.Duration

	RequestTimeout time.Duration
	MaxRetries     int
}

// FromEnv monta um Config a partir das variáveis de ambiente (sem validar).
// Os nomes e defaults seguem o .env do projeto.
func FromEnv() Config {
	return Config{
		UploadURL:      getenv("HTTP_URL", DefaultUploadURL),
		Fingerprint:    strings.TrimSpace(os.Getenv("FINGERPRINT")),
		Token:          strings.TrimSpace(os.Getenv("TOKEN")),
		Method:         CaptureMethod(strings.ToLower(getenv("CAPTURE_METHOD", "http"))),
		SnapshotURL:    getenv("SNAPSHOT_URL", DefaultSnapshotURL),
		RTSPURL:        strings.TrimSpace(os.Getenv("RTSP_URL")),
		RTSPTimeout:    envDurationSeconds("RTSP_TIMEOUT", 10*time.Second),
		PingHost:       getenv("PING_HOST", DefaultPingHost),
		Delay:          envDurationSeconds("DELAY_SECONDS", 10*time.Second),
		LongDelay:      envDurationSeconds("LONG_DELAY_SECONDS", 60*time.Second),
		RequestTimeout: envDurationSeconds("TIMEOUT", 30*time.Second),
		MaxRetries:     getenvInt("MAX_RETRIES", 3),
	}
}

// Validate checa os invariantes na ordem: credenciais, método de captura,
// fonte da captura e por último os tempos. O primeiro que falhar encerra.
func (c Config) Validate() error {
	if c.Fingerprint == "" {
		return ErrMissingFingerprint
	}
	if c.Token == "" {
		return ErrMissingToken
	}

	switch c.Method {
	case CaptureHTTP, CaptureRTSP:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidCaptureMethod, string(c.Method))
	}

	if c.Method == CaptureHTTP && strings.TrimSpace(c.SnapshotURL) == "" {
		return ErrMissingSnapshotURL
	}
	if c.Method == CaptureRTSP && c.RTSPURL == "" {
		return ErrMissingRTSPURL
	}

	if c.Delay <= 0 {
		return fmt.Errorf("%w: DELAY_SECONDS=%s", ErrInvalidTiming, c.Delay)
	}
	if c.LongDelay <= 0 {
		return fmt.Errorf("%w: LONG_DELAY_SECONDS=%s", ErrInvalidTiming, c.LongDelay)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: TIMEOUT=%s", ErrInvalidTiming, c.RequestTimeout)
	}
	if c.Method == CaptureRTSP && c.RTSPTimeout <= 0 {
		return fmt.Errorf("%w: RTSP_TIMEOUT=%s", ErrInvalidTiming, c.RTSPTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidMaxRetries, c.MaxRetries)
	}

	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return x
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(sec) * time.Second
}
