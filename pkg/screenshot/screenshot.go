// Package screenshot loads screenshot attachments from disk or from
// S3-compatible object storage.
package screenshot

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fixforge-client/pkg/config"
	"fixforge-client/pkg/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const objectScheme = "s3://"

// ObjectStore fetches objects by bucket and key.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, string, error)
}

type Loader struct {
	store ObjectStore
}

// NewLoader returns a loader. store may be nil when only local files are used.
func NewLoader(store ObjectStore) *Loader {
	return &Loader{store: store}
}

// Load reads ref, which is a local path or s3://bucket/key.
func (l *Loader) Load(ctx context.Context, ref string) (*models.Screenshot, error) {
	if strings.HasPrefix(ref, objectScheme) {
		return l.loadObject(ctx, ref)
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	name := filepath.Base(ref)
	return &models.Screenshot{
		Name:        name,
		ContentType: detectContentType(name, data, ""),
		Data:        data,
	}, nil
}

func (l *Loader) loadObject(ctx context.Context, ref string) (*models.Screenshot, error) {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return nil, err
	}
	if l.store == nil {
		return nil, fmt.Errorf("screenshot %s: object storage is not configured", ref)
	}

	body, contentType, err := l.store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", ref, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", ref, err)
	}
	name := path.Base(key)
	return &models.Screenshot{
		Name:        name,
		ContentType: detectContentType(name, data, contentType),
		Data:        data,
	}, nil
}

// ParseObjectRef splits s3://bucket/key.
func ParseObjectRef(ref string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(ref, objectScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object reference %q, want s3://bucket/key", ref)
	}
	return bucket, key, nil
}

func detectContentType(name string, data []byte, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	sniffed := http.DetectContentType(data)
	if sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/plain") {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return sniffed
}

// MinioStore reads objects through minio-go.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

func (s *MinioStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	// GetObject is lazy; Stat surfaces missing objects and gives the type.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, "", err
	}
	return obj, info.ContentType, nil
}
