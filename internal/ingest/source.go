package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"osservatorio/internal/config"
)

// OpenSource opens the processed payments CSV. With a MinIO endpoint
// configured the object store wins; otherwise the local path is used.
func OpenSource(ctx context.Context, cfg config.IngestConfig) (io.ReadCloser, error) {
	if cfg.MinioEndpoint != "" {
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		log.Printf("ingest: reading %s/%s from %s", cfg.MinioBucket, cfg.MinioObject, cfg.MinioEndpoint)
		obj, err := client.GetObject(ctx, cfg.MinioBucket, cfg.MinioObject, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("minio get %s/%s: %w", cfg.MinioBucket, cfg.MinioObject, err)
		}
		return obj, nil
	}

	log.Printf("ingest: reading local file %s", cfg.CSVPath)
	f, err := os.Open(cfg.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	return f, nil
}
