package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"vardhanvasista/fresalyzer/internal/models"
)

type StorageService interface {
	SaveFile(file *multipart.FileHeader, role models.DocumentRole) (string, string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath string
	maxBytes   int64
}

func NewStorageService(uploadPath string, maxBytes int64) StorageService {
	return &storageService{
		uploadPath: uploadPath,
		maxBytes:   maxBytes,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

func (s *storageService) SaveFile(file *multipart.FileHeader, role models.DocumentRole) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !IsSupportedFile(file.Filename) {
		return "", "", &ExtractionError{
			Kind: ErrUnsupportedFormat,
			Name: file.Filename,
			Err:  fmt.Errorf("expected one of %s", strings.Join(SupportedExtensions, ", ")),
		}
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", "", fmt.Errorf("file %s is %d bytes, limit is %d", file.Filename, file.Size, s.maxBytes)
	}

	uniqueFilename := fmt.Sprintf("%s_%s%s", role, uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", "", fmt.Errorf("failed to save file: %w", err)
	}

	return uniqueFilename, filePath, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ObjectStore archives exported files. Put returns where the object landed.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type localObjectStore struct {
	dir string
}

func NewLocalObjectStore(dir string) ObjectStore {
	return &localObjectStore{dir: dir}
}

func (l *localObjectStore) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3ObjectStore struct {
	client s3PutAPI
	bucket string
}

// S3Settings locates an S3-compatible bucket. When Endpoint is empty and
// AccountID is set, the Cloudflare R2 endpoint for that account is used.
type S3Settings struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccountID string
	AccessKey string
	SecretKey string
	PathStyle bool
}

func NewS3ObjectStore(ctx context.Context, settings S3Settings) (ObjectStore, error) {
	region := settings.Region
	if region == "" {
		region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if settings.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKey, settings.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := settings.Endpoint
	if endpoint == "" && settings.AccountID != "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", settings.AccountID)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = settings.PathStyle
	})

	return newS3ObjectStore(client, settings.Bucket), nil
}

func newS3ObjectStore(client s3PutAPI, bucket string) *s3ObjectStore {
	return &s3ObjectStore{client: client, bucket: bucket}
}

func (s *s3ObjectStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, s.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
