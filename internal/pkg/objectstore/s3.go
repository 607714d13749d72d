package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Config configures an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	KeyPrefix       string
	PathStyle       bool
}

// S3Store stores objects in a single bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	region     string
	endpoint   *url.URL
	publicBase string
	prefix     string
	pathStyle  bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	region := strings.TrimSpace(cfg.Region)
	if bucket == "" || region == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	pathStyle := cfg.PathStyle
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		// custom endpoints (minio, r2) rarely support virtual-host buckets
		pathStyle = true
	} else {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
	}

	opts := s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		UsePathStyle: pathStyle,
	}
	if strings.TrimSpace(cfg.Endpoint) != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}

	return &S3Store{
		client:     s3.New(opts),
		bucket:     bucket,
		region:     region,
		endpoint:   parsed,
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		prefix:     strings.Trim(normalizeObjectKey(cfg.KeyPrefix), "/"),
		pathStyle:  pathStyle,
	}, nil
}

// Upload stores f under <prefix>/<owner>/<uuid><ext> and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, ownerID string, f File) (Object, error) {
	if f.Body == nil {
		return Object{}, fmt.Errorf("upload %q: empty body", f.Filename)
	}
	key := normalizeObjectKey(strings.Join([]string{s.prefix, ownerID, uuid.NewString() + extension(f)}, "/"))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(contentType),
	}
	if f.Size > 0 {
		input.ContentLength = aws.Int64(f.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return Object{Key: key, URL: s.publicURL(key)}, nil
}

// Delete removes keys in one batch. Missing keys are not an error.
func (s *S3Store) Delete(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		if k = normalizeObjectKey(k); k != "" {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
	}
	if len(ids) == 0 {
		return nil
	}
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("s3 delete %s: %s", aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// KeyFromPublicURL returns the object key behind a URL this store produced, or "".
func (s *S3Store) KeyFromPublicURL(publicURL string) string {
	publicURL = strings.TrimSpace(publicURL)
	if publicURL == "" {
		return ""
	}
	base := s.publicURL("")
	if !strings.HasPrefix(publicURL, base) {
		return ""
	}
	key, err := url.PathUnescape(strings.TrimPrefix(publicURL, base))
	if err != nil {
		return ""
	}
	key = normalizeObjectKey(key)
	if s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/") {
		return ""
	}
	return key
}

func (s *S3Store) publicURL(key string) string {
	encoded := encodeObjectKey(key)
	if s.publicBase != "" {
		return s.publicBase + "/" + encoded
	}
	basePath := strings.TrimSuffix(s.endpoint.Path, "/")
	if s.pathStyle {
		return s.endpoint.Scheme + "://" + s.endpoint.Host + strings.TrimSuffix(joinURLPath(basePath, s.bucket), "/") + "/" + encoded
	}
	host := s.endpoint.Host
	if !strings.HasPrefix(strings.ToLower(host), strings.ToLower(s.bucket)+".") {
		host = s.bucket + "." + host
	}
	return s.endpoint.Scheme + "://" + host + strings.TrimSuffix(joinURLPath(basePath), "/") + "/" + encoded
}
