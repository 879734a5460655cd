// internal/storage/minio_store.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore arquiva uma cópia de cada snapshot capturado. É um canal
// lateral de auditoria: o upload pro Connect não depende dele.
type ImageStore interface {
	SaveSnapshot(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type MinioStore struct {
	client *minio.Client
	bucket string
	useSSL bool
}

// Global simples: o arquivamento é opcional e o resto do código só checa nil.
var DefaultStore ImageStore

// NewMinioStoreFromEnv monta o arquivo de snapshots. Sem credenciais
// configuradas, retorna erro e o daemon segue sem arquivar.
func NewMinioStoreFromEnv() (*MinioStore, error) {
	endpoint := getenv("MINIO_ENDPOINT", "localhost:9000")
	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	bucket := getenv("MINIO_BUCKET", "cam-uplink-snapshots")
	useSSL := getenv("MINIO_USE_SSL", "false") == "true"

	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY / MINIO_SECRET_KEY não configurados")
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("erro criando cliente MinIO: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Cria bucket se não existir
	err = cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := cli.BucketExists(ctx, bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("erro criando/verificando bucket %s: %w", bucket, err)
		}
	}

	log.Printf("[minio] conectado ao endpoint %s, bucket=%s", endpoint, bucket)

	return &MinioStore{
		client: cli,
		bucket: bucket,
		useSSL: useSSL,
	}, nil
}

func (s *MinioStore) SaveSnapshot(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return "", fmt.Errorf("erro ao enviar objeto pro MinIO: %w", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key), nil
}

// SnapshotKey gera a chave datada do objeto, uma por captura.
func SnapshotKey(t time.Time) string {
	prefix := strings.Trim(getenv("MINIO_KEY_PREFIX", "snapshots"), "/")
	t = t.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/snapshot_%d.jpg",
		prefix, t.Year(), t.Month(), t.Day(), t.UnixNano())
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
