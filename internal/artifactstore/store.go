// Package artifactstore fetches forecasting model and explainer artifacts
// from S3-compatible object storage, caching each one as a msgpack blob on
// local disk so repeated task lookups avoid a network round trip.
package artifactstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/sentinel/internal/modelcache"
)

// Store downloads task artifacts (the main kernel and its version
// snapshots) from an S3 bucket and decodes them into modelcache.Handle
// values, using a local disk cache keyed by task ID: a task ID found on
// disk is served from there without contacting S3, so a changed S3 object
// is not picked up while its disk entry exists.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	cacheDir string
	log      zerolog.Logger
}

// Config configures a Store.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional S3-compatible endpoint override
	CacheDir string
}

// New builds a Store from cfg, loading AWS credentials/region from the
// standard environment/shared-config chain.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = "artifact-cache"
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact cache dir: %w", err)
	}

	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		cacheDir: cacheDir,
		log:      log.With().Str("component", "artifactstore.Store").Logger(),
	}, nil
}

// Load implements forecasting.ArtifactLoader: it resolves taskID to a
// modelcache.Handle, checking the local disk cache before falling back to
// S3.
func (s *Store) Load(ctx context.Context, taskID string) (*modelcache.Handle, error) {
	if cached, ok := s.loadFromDisk(taskID); ok {
		s.log.Debug().Str("task_id", taskID).Msg("artifact served from local cache")
		return cached, nil
	}

	handle, raw, err := s.fetchFromS3(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.saveToDisk(taskID, raw); err != nil {
		s.log.Warn().Err(err).Str("task_id", taskID).Msg("failed to persist artifact to local cache")
	}

	return handle, nil
}

func (s *Store) key(taskID string) string {
	return fmt.Sprintf("tasks/%s/artifact.msgpack", taskID)
}

func (s *Store) cachePath(taskID string) string {
	return filepath.Join(s.cacheDir, taskID+".msgpack")
}

func (s *Store) loadFromDisk(taskID string) (*modelcache.Handle, bool) {
	raw, err := os.ReadFile(s.cachePath(taskID))
	if err != nil {
		return nil, false
	}
	var handle modelcache.Handle
	if err := msgpack.Unmarshal(raw, &handle); err != nil {
		s.log.Warn().Err(err).Str("task_id", taskID).Msg("corrupt local artifact cache entry, ignoring")
		return nil, false
	}
	return &handle, true
}

func (s *Store) saveToDisk(taskID string, raw []byte) error {
	return os.WriteFile(s.cachePath(taskID), raw, 0o644)
}

func (s *Store) fetchFromS3(ctx context.Context, taskID string) (*modelcache.Handle, []byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(taskID)),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("get artifact object for task %q: %w", taskID, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read artifact body for task %q: %w", taskID, err)
	}

	var handle modelcache.Handle
	if err := msgpack.Unmarshal(raw, &handle); err != nil {
		return nil, nil, fmt.Errorf("decode artifact for task %q: %w", taskID, err)
	}

	return &handle, raw, nil
}

// Publish uploads a locally-built artifact blob for taskID, used by
// offline training jobs to push a newly trained kernel's handle.
func (s *Store) Publish(ctx context.Context, taskID string, handle *modelcache.Handle) error {
	raw, err := msgpack.Marshal(handle)
	if err != nil {
		return fmt.Errorf("encode artifact for task %q: %w", taskID, err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(taskID)),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("upload artifact for task %q: %w", taskID, err)
	}

	if err := s.saveToDisk(taskID, raw); err != nil {
		s.log.Warn().Err(err).Str("task_id", taskID).Msg("failed to refresh local cache after publish")
	}
	return nil
}
