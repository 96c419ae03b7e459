package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

const defaultPresignTTL = 15 * time.Minute

// PresignAPI is the subset of s3.PresignClient used by S3Source.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Source serves the sample document from a private bucket through a
// short-lived presigned URL. URLs are reused until half their lifetime is spent.
type S3Source struct {
	presigner PresignAPI
	bucket    string
	key       string
	caption   string
	ttl       time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu        sync.Mutex
	cachedURL string
	refreshAt time.Time
}

// S3SourceConfig configures an S3Source.
type S3SourceConfig struct {
	Bucket  string
	Key     string
	Caption string
	TTL     time.Duration
}

func NewS3Source(presigner PresignAPI, cfg S3SourceConfig, logger *logging.Logger) (*S3Source, error) {
	if presigner == nil {
		return nil, fmt.Errorf("media: presigner required")
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("media: bucket and key are required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultPresignTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &S3Source{
		presigner: presigner,
		bucket:    cfg.Bucket,
		key:       cfg.Key,
		caption:   cfg.Caption,
		ttl:       cfg.TTL,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// NewS3SourceFromClient presigns with the given S3 client.
func NewS3SourceFromClient(client *s3.Client, cfg S3SourceConfig, logger *logging.Logger) (*S3Source, error) {
	if client == nil {
		return nil, fmt.Errorf("media: s3 client required")
	}
	return NewS3Source(s3.NewPresignClient(client), cfg, logger)
}

func (s *S3Source) SampleDocument(ctx context.Context) (conversation.Media, error) {
	url, err := s.url(ctx)
	if err != nil {
		return conversation.Media{}, err
	}
	return conversation.Media{
		Kind:    conversation.MediaDocument,
		URL:     url,
		Caption: s.caption,
	}, nil
}

func (s *S3Source) url(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.cachedURL != "" && now.Before(s.refreshAt) {
		return s.cachedURL, nil
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("media: presign s3://%s/%s: %w", s.bucket, s.key, err)
	}

	s.cachedURL = req.URL
	s.refreshAt = now.Add(s.ttl / 2)
	s.logger.Debug("presigned sample document", "bucket", s.bucket, "key", s.key, "ttl", s.ttl)
	return s.cachedURL, nil
}

var _ conversation.MediaSource = (*S3Source)(nil)
