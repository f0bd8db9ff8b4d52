package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"meshmeta/internal/gateway/config"
	"meshmeta/internal/gateway/repository/docstore"
)

// openDocstore connects the backend chosen by STORE_BACKEND (or inferred from
// which connection settings are present).
func openDocstore(ctx context.Context, cfg config.StoreConfig, log *zap.SugaredLogger) (docstore.DB, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		db, err := docstore.NewMongo(ctx, docstore.MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo store: %w", err)
		}
		log.Infow("document store: mongo", "database", cfg.MongoDatabase)
		return db, nil
	case config.BackendPostgres:
		db, err := docstore.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		log.Infow("document store: postgres")
		return db, nil
	case config.BackendS3:
		db, err := docstore.NewS3(docstore.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 store: %w", err)
		}
		log.Infow("document store: s3", "bucket", cfg.S3.Bucket, "endpoint", cfg.S3.Endpoint)
		return db, nil
	case config.BackendMemory, "":
		log.Infow("document store: in-memory")
		return docstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
