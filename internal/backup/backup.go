// Package backup exports a user's dataset to a Cloud Storage bucket as a
// JSON snapshot. Exports are best effort from the caller's point of view:
// failures are returned and logged, never fatal to the sync engine.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jchenli/finboard/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// ObjectWriter is the slice of the storage API the exporter needs; it allows
// a fake bucket in tests.
type ObjectWriter interface {
	Write(ctx context.Context, objectName string, data []byte) error
}

// Exporter serializes AppState snapshots into timestamped objects under a
// per-user prefix.
type Exporter struct {
	bucket string
	writer ObjectWriter
	now    func() time.Time
	log    zerolog.Logger
}

// New creates an exporter targeting a GCS bucket. It assumes Application
// Default Credentials unless overridden through opts.
func New(ctx context.Context, bucket string, log zerolog.Logger, opts ...option.ClientOption) (*Exporter, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backup: create storage client: %w", err)
	}
	return &Exporter{
		bucket: bucket,
		writer: &gcsWriter{client: client, bucket: bucket},
		now:    time.Now,
		log:    log,
	}, nil
}

// NewWithWriter creates an exporter over a custom writer, used in tests.
func NewWithWriter(bucket string, w ObjectWriter, log zerolog.Logger) *Exporter {
	return &Exporter{bucket: bucket, writer: w, now: time.Now, log: log}
}

// Export writes the snapshot as backups/{uid}/{timestamp}.json and returns
// the object name.
func (e *Exporter) Export(ctx context.Context, uid string, state domain.AppState) (string, error) {
	if uid == "" {
		return "", fmt.Errorf("backup: uid is required")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup: marshal snapshot: %w", err)
	}

	objectName := fmt.Sprintf("backups/%s/%s.json", uid, e.now().UTC().Format("20060102T150405Z"))
	if err := e.writer.Write(ctx, objectName, data); err != nil {
		e.log.Error().Err(err).Str("object", objectName).Msg("Snapshot export failed")
		return "", fmt.Errorf("backup: write %s: %w", objectName, err)
	}

	e.log.Info().
		Str("object", objectName).
		Int("bytes", len(data)).
		Msg("Snapshot exported")
	return objectName, nil
}

type gcsWriter struct {
	client *storage.Client
	bucket string
}

func (g *gcsWriter) Write(ctx context.Context, objectName string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
