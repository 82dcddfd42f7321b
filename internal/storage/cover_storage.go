// Package storage uploads trip cover images to an S3-compatible bucket
// (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// CoverPrefix is the key prefix of every stored cover.
const CoverPrefix = "trip-covers/"

// DefaultMaxUploadBytes caps a cover image at 10MB.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

var allowedMimes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ObjectAPI is the subset of *s3.Client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Upload is a stored cover image.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// CoverStorage stores trip cover images.
type CoverStorage struct {
	client        ObjectAPI
	bucket        string
	publicBaseURL string
	maxBytes      int64
	now           func() time.Time
}

// NewS3Client builds a client for the configured endpoint. Credentials are
// static; the SDK does not fall back to the environment chain.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading storage config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewCoverStorage builds cover storage on a fresh S3 client.
func NewCoverStorage(ctx context.Context, cfg config.StorageConfig) (*CoverStorage, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCoverStorageWithClient(client, cfg), nil
}

// NewCoverStorageWithClient wires an existing client.
func NewCoverStorageWithClient(client ObjectAPI, cfg config.StorageConfig) *CoverStorage {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &CoverStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      maxBytes,
		now:           time.Now,
	}
}

// Upload sniffs r, rejects anything that is not an allowed image or is larger
// than the cap, and stores it under trip-covers/{userID}/{tripID}/.
func (s *CoverStorage) Upload(ctx context.Context, userID, tripID, filename string, r io.Reader) (*Upload, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperrors.InvalidUpload("file_too_large",
			fmt.Sprintf("Cover images are limited to %d bytes", s.maxBytes))
	}
	if len(data) == 0 {
		return nil, apperrors.InvalidUpload("empty_file", "The uploaded file is empty")
	}

	mime := mimetype.Detect(data)
	ext, ok := allowedMimes[mime.String()]
	if !ok {
		return nil, apperrors.InvalidUpload("invalid_mime_type",
			fmt.Sprintf("MIME type %s is not allowed. Allowed: jpeg, png, webp, heic", mime.String()))
	}

	name := SanitizeFilename(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	key := fmt.Sprintf(CoverPrefix+"%s/%s/%d_%s%s", userID, tripID, s.now().Unix(), name, ext)
	if err := validateKey(key); err != nil {
		return nil, err
	}

	contentType := mime.String()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("storage put object failed: %w", err)
	}

	return &Upload{
		Key:         key,
		URL:         s.URLFor(key),
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Delete removes a stored object.
func (s *CoverStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage delete object failed: %w", err)
	}
	return nil
}

// URLFor returns the public URL of key.
func (s *CoverStorage) URLFor(key string) string {
	if s.publicBaseURL == "" {
		return key
	}
	return s.publicBaseURL + "/" + key
}

// KeyFromURL reverses URLFor. ok is false for URLs this storage did not issue.
func (s *CoverStorage) KeyFromURL(url string) (string, bool) {
	if s.publicBaseURL == "" {
		return "", false
	}
	key, ok := strings.CutPrefix(url, s.publicBaseURL+"/")
	if !ok || !strings.HasPrefix(key, CoverPrefix) {
		return "", false
	}
	return key, true
}

// SanitizeFilename strips directories and anything outside [a-zA-Z0-9._-].
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	if len(name) > 128 {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:128-len(ext)] + ext
	}
	return name
}

func validateKey(key string) error {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return fmt.Errorf("path traversal detected in storage key")
		}
	}
	return nil
}
