// internal/capture/http.go
package capture

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

// HTTPSnapshot busca um still no endpoint do mjpeg-streamer (GET, status 200,
// corpo é o JPEG inteiro).
type HTTPSnapshot struct {
	url    string
	client *http.Client
}

func NewHTTPSnapshot(url string, timeout time.Duration) *HTTPSnapshot {
	return &HTTPSnapshot{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (b *HTTPSnapshot) Capture(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drena o corpo pra não vazar a conexão do client.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindNonSuccessStatus, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindEmptyBody}
	}

	log.Printf("[capture] http snapshot ok (%d bytes)", len(data))

	return &Snapshot{
		Data:        data,
		ContentType: "image/jpeg",
		TakenAt:     time.Now().UTC(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
