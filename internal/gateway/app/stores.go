package app

import (
	"log"
	"strings"

	"tinyapps/internal/config"
	"tinyapps/internal/docstore"
)

// initStore picks the store backend from config: Postgres when a DSN is
// set, otherwise the JSON file, plus an optional S3 snapshot mirror.
func initStore(cfg *config.Config) *docstore.Store {
	var store *docstore.Store
	if dsn := strings.TrimSpace(cfg.StoreDSN); dsn != "" {
		s, err := docstore.NewPostgres(dsn)
		if err != nil {
			log.Printf("program store: postgres unavailable, falling back to file backend: %v", err)
			store = docstore.New(cfg.StorePath)
		} else {
			log.Printf("program store: postgres")
			store = s
		}
	} else {
		log.Printf("program store: file %s", cfg.StorePath)
		store = docstore.New(cfg.StorePath)
	}

	if cfg.Snapshot.Enabled {
		mirror, err := docstore.NewS3Mirror(docstore.S3Config{
			Endpoint:  cfg.Snapshot.Endpoint,
			Region:    cfg.Snapshot.Region,
			AccessKey: cfg.Snapshot.AccessKey,
			SecretKey: cfg.Snapshot.SecretKey,
			Bucket:    cfg.Snapshot.Bucket,
			UseSSL:    cfg.Snapshot.UseSSL,
			StoreKey:  "programs",
		})
		if err != nil {
			log.Printf("program store: snapshot mirror disabled: %v", err)
		} else {
			store.SetMirror(mirror)
			log.Printf("program store: snapshot mirror bucket=%s endpoint=%s", cfg.Snapshot.Bucket, cfg.Snapshot.Endpoint)
		}
	}

	store.EnsureLoaded()
	return store
}
