package docstore

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures the optional snapshot mirror.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	StoreKey  string
}

// S3Mirror uploads serialized store snapshots to an S3-compatible bucket on
// every save, keeping an off-host copy of the persisted state.
type S3Mirror struct {
	client   *minio.Client
	bucket   string
	storeKey string

	initOnce sync.Once
	initErr  error
}

// NewS3Mirror validates the config and builds the client. The bucket is
// created lazily on first upload.
func NewS3Mirror(cfg S3Config) (*S3Mirror, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	storeKey := strings.TrimSpace(cfg.StoreKey)
	if storeKey == "" {
		storeKey = "docstore"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Mirror{client: client, bucket: bucket, storeKey: storeKey}, nil
}

func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	})
	return m.initErr
}

// Upload writes one snapshot. Failures are logged; the local persisted file
// remains the source of truth.
func (m *S3Mirror) Upload(snapshot []byte) {
	if m == nil || m.client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.ensureBucket(ctx); err != nil {
		log.Printf("docstore: s3 mirror bucket check failed: %v", err)
		return
	}
	object := m.storeKey + ".json"
	_, err := m.client.PutObject(ctx, m.bucket, object,
		bytes.NewReader(snapshot), int64(len(snapshot)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		log.Printf("docstore: s3 mirror upload failed: %v", err)
	}
}
