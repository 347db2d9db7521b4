package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"lostfound/config"
	"lostfound/imageprocessor"
	"lostfound/types"
)

// S3Store keeps images in an S3 compatible bucket under
// <prefix>/<category>/<filename>
type S3Store struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Store creates a bucket backed catalog. A custom endpoint switches to
// path-style addressing, which R2 and MinIO expect.
func NewS3Store(cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}

	awsConfig := &aws.Config{
		Region:     aws.String(cfg.Region),
		MaxRetries: aws.Int(cfg.MaxRetries),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}

	return NewS3StoreWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) categoryPrefix(category types.Category) string {
	return path.Join(s.prefix, string(category)) + "/"
}

func (s *S3Store) key(category types.Category, filename string) string {
	return s.categoryPrefix(category) + filename
}

// ListEntries lists the objects directly under the category prefix in key
// order
func (s *S3Store) ListEntries(ctx context.Context, category types.Category) ([]string, error) {
	prefix := s.categoryPrefix(category)
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var names []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), prefix)
			if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	return names, nil
}

// ReadEntry downloads one object
func (s *S3Store) ReadEntry(ctx context.Context, category types.Category, filename string) ([]byte, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	key := s.key(category, filename)
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// SaveEntry uploads one object
func (s *S3Store) SaveEntry(ctx context.Context, category types.Category, filename string, data []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	key := s.key(category, filename)
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(imageprocessor.ContentType(filename)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// DeleteEntry removes one object
func (s *S3Store) DeleteEntry(ctx context.Context, category types.Category, filename string) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	key := s.key(category, filename)
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists checks for an object with a HEAD request
func (s *S3Store) Exists(ctx context.Context, category types.Category, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}

	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(category, filename)),
	})
	if err == nil {
		return true, nil
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return false, nil
	}
	return false, err
}
