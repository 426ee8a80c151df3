package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/cellrelay/pkg/log"
	"github.com/autopeer-io/cellrelay/pkg/options"
)

// MinIO hands out short-lived presigned URLs for artifacts kept in an S3 compatible bucket.
type MinIO struct {
	client     *minio.Client
	bucketName string

	firmwareObject string
	versionObject  string
	expiry         time.Duration
}

// NewMinIO creates a presigning source for the given bucket objects.
func NewMinIO(opts *options.S3Options, firmwareObject, versionObject string, expiry time.Duration) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIO{
		client:         client,
		bucketName:     opts.BucketName,
		firmwareObject: firmwareObject,
		versionObject:  versionObject,
		expiry:         expiry,
	}, nil
}

func (p *MinIO) FirmwareURL(ctx context.Context) (string, error) {
	return p.presign(ctx, p.firmwareObject)
}

func (p *MinIO) VersionURL(ctx context.Context) (string, error) {
	return p.presign(ctx, p.versionObject)
}

// presign signs locally; the bucket is not contacted until the URL is fetched.
func (p *MinIO) presign(ctx context.Context, objectKey string) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, p.bucketName, objectKey, p.expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url for %s: %w", objectKey, err)
	}
	log.Debug("Presigned firmware artifact", "bucket", p.bucketName, "object", objectKey, "expiry", p.expiry)
	return u.String(), nil
}
