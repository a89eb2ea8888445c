package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	crd "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store keeps artifacts in a bucket under the configured key prefix.
type S3Store struct {
	client *s3.Client
	cfg    *config.S3Config
	log    *slog.Logger
}

func NewS3Store(cfg *config.S3Config, log *slog.Logger) *S3Store {
	log.Info("connecting to s3...")
	ctx := context.Background()

	s3Config, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithCredentialsProvider(crd.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, "")),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithBaseEndpoint(cfg.AwsBaseEndpoint))
	if err != nil {
		log.Error("failed to load s3 config.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// LocalStack does not support `virtual host addressing style` that uses s3 by default.
	// For test purposes use configuration with disabled 'virtual hosted bucket addressing'.
	var s3client *s3.Client
	if cfg.AwsAccessKey == "test" {
		log.Warn("test configuration for s3")
		s3client = s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	} else {
		s3client = s3.NewFromConfig(s3Config)
	}
	log.Info("connected to s3")

	return &S3Store{
		client: s3client,
		cfg:    cfg,
		log:    log,
	}
}

// Mkdir is a no-op: keys carry their own prefixes.
func (s *S3Store) Mkdir(_ context.Context, _ string) error {
	return nil
}

func (s *S3Store) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(s.key(p)),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", p, err)
	}
	return out.Body, nil
}

// OpenWrite buffers the content in memory and uploads it on Close.
func (s *S3Store) OpenWrite(ctx context.Context, p string) (io.WriteCloser, error) {
	return &s3Writer{ctx: ctx, store: s, key: s.key(p)}, nil
}

func (s *S3Store) PutFile(ctx context.Context, localPath, remotePath string) error {
	body, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return s.put(ctx, s.key(remotePath), body)
}

func (s *S3Store) Download(ctx context.Context, remotePath, localPath string) error {
	body, err := s.OpenRead(ctx, remotePath)
	if err != nil {
		return err
	}
	defer body.Close()

	return copyToLocal(body, localPath)
}

func (s *S3Store) put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %s: %w", key, err)
	}
	s.log.Debug("object saved to s3.", slog.String("key", key))

	return nil
}

func (s *S3Store) key(p string) string {
	return path.Join(s.cfg.KeyPrefix, strings.TrimPrefix(p, "/"))
}

type s3Writer struct {
	ctx    context.Context
	store  *S3Store
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.store.put(w.ctx, w.key, w.buf.Bytes())
}
