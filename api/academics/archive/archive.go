// Package archive keeps a copy of every uploaded spreadsheet in object
// storage, keyed by import kind and run id.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"SchoolPortal/internal/config"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
)

type Archiver interface {
	Archive(ctx context.Context, kind string, runID uuid.UUID, fileName string, data []byte) (string, error)
}

// Noop is used when object storage is not configured.
type Noop struct{}

func (Noop) Archive(ctx context.Context, kind string, runID uuid.UUID, fileName string, data []byte) (string, error) {
	return "", nil
}

type objectUploader interface {
	UploadFile(bucketID, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
}

type SupabaseArchiver struct {
	client objectUploader
	bucket string
}

func NewSupabaseArchiver(baseURL, serviceKey, bucket string) *SupabaseArchiver {
	endpoint := strings.TrimRight(baseURL, "/") + "/storage/v1"
	headers := map[string]string{"apikey": serviceKey}
	return &SupabaseArchiver{
		client: storage_go.NewClient(endpoint, serviceKey, headers),
		bucket: bucket,
	}
}

// FromEnv returns a Supabase archiver when SUPABASE_URL and
// SUPABASE_SERVICE_ROLE_KEY are set, and Noop otherwise.
func FromEnv() Archiver {
	url := strings.Trim(config.Env(config.EnvStorageURL, ""), "\"")
	key := strings.Trim(config.Env(config.EnvStorageKey, ""), "\"")
	if url == "" || key == "" {
		return Noop{}
	}
	return NewSupabaseArchiver(url, key, config.Env(config.EnvStorageBucket, config.DefaultArchiveBucket))
}

func (a *SupabaseArchiver) Archive(ctx context.Context, kind string, runID uuid.UUID, fileName string, data []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	objectPath := ObjectPath(kind, runID, fileName)
	contentType := ContentType(fileName)
	upsert := true
	if _, err := a.client.UploadFile(a.bucket, objectPath, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("archive %s: %w", objectPath, err)
	}
	return objectPath, nil
}

// ObjectPath is {kind}/{run id}/{base file name}.
func ObjectPath(kind string, runID uuid.UUID, fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = strings.ReplaceAll(base, " ", "_")
	return path.Join(kind, runID.String(), base)
}

func ContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	}
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
