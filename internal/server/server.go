// Package server assembles the HTTP handler chain for the country form.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kuitang/country-form/internal/archive"
	"github.com/kuitang/country-form/internal/config"
	"github.com/kuitang/country-form/internal/countries"
	"github.com/kuitang/country-form/internal/obs"
	"github.com/kuitang/country-form/internal/ratelimit"
	"github.com/kuitang/country-form/internal/web"
)

var logger = obs.Pkg("server")

// Server is the assembled application: routes, middleware and the
// background resources they own.
type Server struct {
	Handler http.Handler
	Archive *archive.Archive

	limiter  *ratelimit.RateLimiter
	inMemory *archive.InMemory
}

// New builds the server described by cfg. The caller must call Close.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	catalog, err := countries.Load(cfg.CountriesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load country catalog: %w", err)
	}

	s := &Server{}
	if cfg.ArchiveEnabled() {
		if err := s.openArchive(ctx, cfg); err != nil {
			return nil, err
		}
	}

	renderer, err := web.NewRenderer(web.Templates())
	if err != nil {
		s.Close()
		return nil, err
	}

	s.limiter = ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	limit := ratelimit.Middleware(s.limiter, ratelimit.ClientIPKey)

	var archiver web.Archiver
	if s.Archive != nil {
		archiver = s.Archive
	}
	mux := http.NewServeMux()
	web.NewFormHandler(renderer, catalog, archiver).RegisterRoutes(mux, limit)

	s.Handler = obs.RequestContextMiddleware(cfg.TrustProxy)(obs.AccessLogMiddleware("http", mux))

	logger.Info("server_ready",
		"countries", len(catalog.All()),
		"eu_members", len(catalog.EUCodes()),
		"archive", cfg.ArchiveEnabled(),
	)
	return s, nil
}

func (s *Server) openArchive(ctx context.Context, cfg *config.Config) error {
	if cfg.NoS3 {
		mem, err := archive.NewInMemory(ctx, cfg.ArchiveBucket)
		if err != nil {
			return fmt.Errorf("failed to start in-memory archive: %w", err)
		}
		s.inMemory = mem
		s.Archive = archive.New(mem)
		return nil
	}

	store, err := archive.NewS3Store(ctx, archive.S3Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.ArchiveBucket,
		UsePathStyle:    cfg.AWSUsePathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to create archive client: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to prepare archive bucket: %w", err)
	}
	s.Archive = archive.New(store)
	return nil
}

// Close stops the rate limiter cleanup loop and any in-memory S3 server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.inMemory != nil {
		if err := s.inMemory.Close(); err != nil {
			logger.Warn("in-memory archive close failed", "error", err)
		}
	}
}
