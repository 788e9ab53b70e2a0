// Package archive snapshots collection metadata to object storage before a
// destructive unlink, so documentation removed from Outline leaves a trace.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docbridge/api/internal/outline"
	"docbridge/api/internal/store"
)

type Service struct {
	client *minio.Client
	bucket string
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Service, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Service{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

type snapshot struct {
	MappingID        string                `json:"mappingId"`
	ProjectID        string                `json:"projectId"`
	OrganizationSlug string                `json:"organizationSlug"`
	Collection       outline.CollectionRef `json:"collection"`
	LinkedAt         time.Time             `json:"linkedAt"`
	ArchivedAt       time.Time             `json:"archivedAt"`
}

// ArchiveCollection writes one JSON object per unlinked collection, keyed by
// organization and collection identifier.
func (s *Service) ArchiveCollection(ctx context.Context, mapping store.Mapping, collection outline.CollectionRef) error {
	payload, err := json.Marshal(snapshot{
		MappingID:        mapping.ID,
		ProjectID:        mapping.ProjectID,
		OrganizationSlug: mapping.OrganizationSlug,
		Collection:       collection,
		LinkedAt:         mapping.CreatedAt,
		ArchivedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	objectName := fmt.Sprintf("collections/%s/%s.json", mapping.OrganizationSlug, mapping.CollectionID)
	_, err = s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", objectName, err)
	}
	return nil
}
