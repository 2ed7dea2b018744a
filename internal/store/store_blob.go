package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goccy/go-json"
)

const maxMetaSize = 1 << 20

type s3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// blobMeta is the on-disk metadata document of an entry.
type blobMeta struct {
	Shortname      string            `json:"shortname"`
	OwnerShortname string            `json:"owner_shortname"`
	Email          *string           `json:"email"`
	Displayname    map[string]string `json:"displayname"`
	Payload        map[string]any    `json:"payload"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// BlobStore reads entry metadata from an S3 compatible bucket laid out as
// {space}/{subpath}/.dm/{shortname}/meta.{resource_type}.json
type BlobStore struct {
	client s3Getter
	bucket string
}

func NewBlobStore(client s3Getter, bucket string) *BlobStore {
	return &BlobStore{client: client, bucket: bucket}
}

func NewBlobStoreWithConfig(cfg *BlobConfig) (*BlobStore, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 25,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewBlobStore(client, cfg.BucketName), nil
}

func MetaKey(q Query) string {
	return path.Join(q.SpaceName, NormalizeSubpath(q.Subpath), ".dm", q.Shortname, "meta."+string(q.ResourceType)+".json")
}

func (b *BlobStore) Load(ctx context.Context, q Query) (*Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := MetaKey(q)
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetaSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var meta blobMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	rec := &Record{
		ResourceType:   q.ResourceType,
		SpaceName:      q.SpaceName,
		Subpath:        NormalizeSubpath(q.Subpath),
		Shortname:      q.Shortname,
		OwnerShortname: meta.OwnerShortname,
		Displayname:    meta.Displayname["en"],
		Payload:        meta.Payload,
		UpdatedAt:      meta.UpdatedAt,
	}
	if meta.Shortname != "" {
		rec.Shortname = meta.Shortname
	}
	if meta.Email != nil {
		rec.Email = *meta.Email
	}
	return rec, nil
}

func (b *BlobStore) Close() error {
	return nil
}

var _ Store = (*BlobStore)(nil)
