package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// smallest valid PNG header, enough for content sniffing
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "u1/1700000000000-abc.png", want: "u1/1700000000000-abc.png"},
		{in: "/u1//a.png", want: "u1/a.png"},
		{in: "u1/../u2/a.png", wantErr: true},
		{in: "..", wantErr: true},
		{in: "", wantErr: true},
		{in: `u1\a.png`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidPath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	bucket, err := NewLocal(root, "/media")
	require.NoError(t, err)

	require.NoError(t, bucket.Put(ctx, "u1/old.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))
	require.NoError(t, bucket.Put(ctx, "u1/new.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))
	require.NoError(t, bucket.Put(ctx, "u2/other.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "u1", "old.png"), past, past))

	t.Run("list newest first under prefix", func(t *testing.T) {
		objects, err := bucket.List(ctx, "u1/", 10)
		require.NoError(t, err)
		require.Len(t, objects, 2)
		assert.Equal(t, "u1/new.png", objects[0].Key)
		assert.Equal(t, "u1/old.png", objects[1].Key)
		assert.Equal(t, "image/png", objects[0].ContentType)
		assert.Equal(t, int64(len(pngBytes)), objects[0].Size)
	})

	t.Run("limit", func(t *testing.T) {
		objects, err := bucket.List(ctx, "", 1)
		require.NoError(t, err)
		assert.Len(t, objects, 1)
	})

	t.Run("url", func(t *testing.T) {
		assert.Equal(t, "/media/u1/new.png", bucket.URL("u1/new.png"))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, bucket.Delete(ctx, "u1/new.png"))
		err := bucket.Delete(ctx, "u1/new.png")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("escape is rejected", func(t *testing.T) {
		err := bucket.Put(ctx, "../evil.png", bytes.NewReader(pngBytes), 1, "image/png")
		assert.True(t, errors.Is(err, ErrInvalidPath))
	})
}

func TestS3(t *testing.T) {
	if testing.Short() {
		t.Skip("minio container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
	require.NoError(t, err)

	bucket, err := NewS3(ctx, S3Options{
		Bucket:    "images",
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	_, err = bucket.Client().CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("images")})
	require.NoError(t, err)

	require.NoError(t, bucket.Put(ctx, "u1/a.png", bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))

	objects, err := bucket.List(ctx, "u1/", 100)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "u1/a.png", objects[0].Key)
	assert.Equal(t, endpoint+"/images/u1/a.png", bucket.URL("u1/a.png"))

	require.NoError(t, bucket.Delete(ctx, "u1/a.png"))
	err = bucket.Delete(ctx, "u1/a.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}
