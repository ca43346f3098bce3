package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/flowdeck/core/internal/config"
	"github.com/flowdeck/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// logRetention is how long request logs stay queryable before the cleanup
// job archives and deletes them.
const logRetention = 90 * 24 * time.Hour

const archiveBatchSize = 500

// Archiver ships expired request logs to an S3 bucket before deletion.
// A nil Archiver (no bucket configured) means cleanup deletes without
// archiving.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiver returns nil when archival is not configured.
func NewArchiver(cfg config.ArchiveConfig) *Archiver {
	if !cfg.Enabled() {
		return nil
	}
	opts := s3.Options{
		Region: cfg.Region,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return &Archiver{
		client: s3.New(opts),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// Put uploads one JSON-lines batch of logs.
func (a *Archiver) Put(ctx context.Context, key string, body []byte) error {
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	return err
}

// CleanupRequestLogs archives logs older than the retention window and
// deletes them. Returns how many rows were removed. When archiving a batch
// fails the batch is kept so no data is lost.
func CleanupRequestLogs(ctx context.Context, db *gorm.DB, archiver *Archiver, logger *zap.Logger) (int, error) {
	cutoff := time.Now().Add(-logRetention)
	deleted := 0

	for {
		var logs []models.AIRequestLogModel
		err := db.Where("created_at < ?", cutoff).
			Order("created_at ASC").
			Limit(archiveBatchSize).
			Find(&logs).Error
		if err != nil {
			return deleted, err
		}
		if len(logs) == 0 {
			return deleted, nil
		}

		if archiver != nil {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			for i := range logs {
				if err := enc.Encode(&logs[i]); err != nil {
					return deleted, err
				}
			}
			key := fmt.Sprintf("request-logs/%s-%s.ndjson",
				time.Now().UTC().Format("20060102T150405"), logs[0].ID)
			if err := archiver.Put(ctx, key, buf.Bytes()); err != nil {
				logger.Error("archive request logs", zap.Error(err))
				return deleted, err
			}
		}

		ids := make([]string, len(logs))
		for i := range logs {
			ids[i] = logs[i].ID
		}
		res := db.Unscoped().Where("id IN ?", ids).Delete(&models.AIRequestLogModel{})
		if res.Error != nil {
			return deleted, res.Error
		}
		deleted += int(res.RowsAffected)

		if len(logs) < archiveBatchSize {
			return deleted, nil
		}
	}
}
