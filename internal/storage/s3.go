package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/dbx"
	"github.com/dmitrijs2005/fileguard/internal/models"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config locates the bucket. Empty credentials fall back to the default
// AWS credential chain.
type S3Config struct {
	Region       string
	Bucket       string
	Prefix       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3BlobStore keeps blobs as objects named <prefix>/<yyyy>/<mm>/<dd>/<id>.
// Locators have the form s3://<bucket>/<key>.
type S3BlobStore struct {
	client s3API
	bucket string
	prefix string
}

func NewS3BlobStore(ctx context.Context, c S3Config) (*S3BlobStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3BlobStore(client, c.Bucket, c.Prefix), nil
}

func newS3BlobStore(client s3API, bucket, prefix string) *S3BlobStore {
	if prefix == "" {
		prefix = "blobs"
	}
	return &S3BlobStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3BlobStore) Transactional() bool { return false }

func (s *S3BlobStore) key(b *models.SecureBlob) string {
	d := b.UploadTime.UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s", s.prefix, d.Year(), d.Month(), d.Day(), b.ID)
}

func (s *S3BlobStore) Locator(b *models.SecureBlob) string {
	return "s3://" + s.bucket + "/" + s.key(b)
}

func (s *S3BlobStore) parse(locator string) (string, error) {
	rest, ok := strings.CutPrefix(locator, "s3://"+s.bucket+"/")
	if !ok || rest == "" {
		return "", fmt.Errorf("locator %q is not in bucket %q", locator, s.bucket)
	}
	return rest, nil
}

func (s *S3BlobStore) Put(ctx context.Context, _ dbx.DBTX, b *models.SecureBlob) (string, error) {
	key := s.key(b)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(b.Data),
		ContentLength: aws.Int64(int64(len(b.Data))),
		ContentType:   aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"original-filename":   b.OriginalFilename,
			"encryption-key-hash": b.KeyHash,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object[%s]: %w", key, err)
	}
	return s.Locator(b), nil
}

func (s *S3BlobStore) Get(ctx context.Context, _ dbx.DBTX, locator string) ([]byte, error) {
	key, err := s.parse(locator)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get object[%s]: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object[%s]: %w", key, err)
	}
	return data, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, _ dbx.DBTX, locator string) error {
	key, err := s.parse(locator)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object[%s]: %w", key, err)
	}
	return nil
}
