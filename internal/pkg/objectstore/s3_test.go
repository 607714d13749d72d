package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg S3Config) *S3Store {
	t.Helper()
	cfg.Bucket = "covers"
	cfg.Region = "eu-west-1"
	cfg.AccessKeyID = "AKIA"
	cfg.SecretAccessKey = "secret"
	s, err := NewS3Store(cfg)
	require.NoError(t, err)
	return s
}

func TestNewS3Store_RequiresCredentials(t *testing.T) {
	_, err := NewS3Store(S3Config{Bucket: "covers", Region: "eu-west-1"})
	assert.Error(t, err)
}

func TestS3Store_PublicURL(t *testing.T) {
	aws := newTestStore(t, S3Config{})
	assert.Equal(t, "https://covers.s3.eu-west-1.amazonaws.com/blog/u1/a%20b.png", aws.publicURL("blog/u1/a b.png"))

	minio := newTestStore(t, S3Config{Endpoint: "minio.local:9000"})
	assert.Equal(t, "https://minio.local:9000/covers/blog/u1/x.png", minio.publicURL("/blog//u1/x.png"))

	cdn := newTestStore(t, S3Config{PublicBaseURL: "https://cdn.hellorun.test/"})
	assert.Equal(t, "https://cdn.hellorun.test/blog/u1/x.png", cdn.publicURL("blog/u1/x.png"))
}

func TestS3Store_KeyFromPublicURL(t *testing.T) {
	s := newTestStore(t, S3Config{PublicBaseURL: "https://cdn.hellorun.test", KeyPrefix: "/blog-covers/"})

	assert.Equal(t, "blog-covers/u1/a b.png", s.KeyFromPublicURL("https://cdn.hellorun.test/blog-covers/u1/a%20b.png"))
	assert.Equal(t, "", s.KeyFromPublicURL("https://cdn.hellorun.test/avatars/u1.png"))
	assert.Equal(t, "", s.KeyFromPublicURL("https://images.example.com/blog-covers/u1.png"))
	assert.Equal(t, "", s.KeyFromPublicURL(""))
}

func TestS3Store_UploadNeedsBody(t *testing.T) {
	s := newTestStore(t, S3Config{})
	_, err := s.Upload(context.Background(), "u1", File{Filename: "x.png"})
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpeg", extension(File{Filename: "Race.JPEG"}))
	assert.Equal(t, ".webp", extension(File{Filename: "noext", ContentType: "image/webp"}))
	assert.Equal(t, "", extension(File{Filename: "evil.exe", ContentType: "application/x-msdownload"}))
}

func TestDisabled(t *testing.T) {
	var s Store = Disabled{}
	_, err := s.Upload(context.Background(), "u1", File{})
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, s.Delete(context.Background(), []string{"k"}))
	assert.Empty(t, s.KeyFromPublicURL("https://x/y"))
}
