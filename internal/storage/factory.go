package storage

import (
	"context"
	"fmt"

	"sslrelay.com/app/internal/config"
)

type FactoryResult struct {
	Driver  string
	Storage Storage
}

func FromConfig(ctx context.Context, cfg config.Archive) (FactoryResult, error) {
	switch cfg.Driver {
	case "", "none":
		return FactoryResult{Driver: "none", Storage: Discard{}}, nil

	case "local":
		baseDir := cfg.LocalDir
		if baseDir == "" {
			baseDir = "./storage/callbacks"
		}
		return FactoryResult{Driver: "local", Storage: NewLocal(baseDir)}, nil

	case "s3":
		if cfg.S3Region == "" || cfg.S3Bucket == "" {
			return FactoryResult{}, fmt.Errorf("S3 config missing: S3_REGION, S3_BUCKET required")
		}
		s, err := NewS3(ctx, S3Config{
			Region: cfg.S3Region,
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
		})
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: "s3", Storage: s}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown ARCHIVE_DRIVER: %s", cfg.Driver)
	}
}
