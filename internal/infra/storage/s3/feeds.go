package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rentcal/internal/app/policies"
)

const feedContentType = "text/calendar; charset=utf-8"

var ErrNotConfigured = errors.New("s3: feed publisher is not configured")

type Options struct {
	Endpoint  string
	UseSSL    bool
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL prefixes returned links; defaults to the endpoint.
	PublicBaseURL string
	// Prefix is the key folder feeds are written under; defaults to "feeds".
	Prefix string
}

// FeedPublisher uploads rendered iCalendar feeds to an S3-compatible bucket,
// one object per listing, overwritten on every publish.
type FeedPublisher struct {
	opts   Options
	client *minio.Client
	logger *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

func NewFeedPublisher(opts Options, logger *slog.Logger) (*FeedPublisher, error) {
	opts.Endpoint = strings.TrimSpace(opts.Endpoint)
	opts.Bucket = strings.TrimSpace(opts.Bucket)
	if opts.Endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if opts.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if opts.Prefix == "" {
		opts.Prefix = "feeds"
	}
	if strings.TrimSpace(opts.PublicBaseURL) == "" {
		scheme := "http://"
		if opts.UseSSL {
			scheme = "https://"
		}
		opts.PublicBaseURL = opts.Endpoint
		if !strings.Contains(opts.Endpoint, "://") {
			opts.PublicBaseURL = scheme + opts.Endpoint
		}
	}
	client, err := minio.New(hostOf(opts.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &FeedPublisher{opts: opts, client: client, logger: logger}, nil
}

// Publish writes body to <prefix>/<listing>.ics and returns its URL.
func (p *FeedPublisher) Publish(ctx context.Context, listingID string, body []byte) (string, error) {
	listingID = strings.Trim(strings.TrimSpace(listingID), "/")
	if listingID == "" {
		return "", errors.New("s3: listing id is required")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := ObjectKey(p.opts.Prefix, listingID)
	_, err := p.client.PutObject(ctx, p.opts.Bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  feedContentType,
		CacheControl: "max-age=300",
	})
	if err != nil {
		return "", fmt.Errorf("s3: put feed %s: %w", key, err)
	}
	link := strings.TrimRight(p.opts.PublicBaseURL, "/") + "/" + p.opts.Bucket + "/" + key
	if p.logger != nil {
		p.logger.Info("feed published", "listing_id", listingID, "bucket", p.opts.Bucket, "key", key, "bytes", len(body))
	}
	return link, nil
}

// Ping reports whether the bucket is reachable.
func (p *FeedPublisher) Ping(ctx context.Context) error {
	_, err := p.client.BucketExists(ctx, p.opts.Bucket)
	return err
}

func (p *FeedPublisher) ensureBucket(ctx context.Context) error {
	p.bucketOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.opts.Bucket)
		if err != nil {
			p.bucketErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := p.client.MakeBucket(ctx, p.opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			p.bucketErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		// Channel managers fetch feeds anonymously.
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s/*"]}]}`, p.opts.Bucket, p.opts.Prefix)
		if err := p.client.SetBucketPolicy(ctx, p.opts.Bucket, policy); err != nil {
			p.bucketErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return p.bucketErr
}

// ObjectKey is the object name a listing's feed is stored under.
func ObjectKey(prefix, listingID string) string {
	return path.Join(strings.Trim(prefix, "/"), url.PathEscape(listingID)+".ics")
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopPublisher is used when no bucket is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) (string, error) {
	return "", ErrNotConfigured
}

var (
	_ policies.FeedPublisher = (*FeedPublisher)(nil)
	_ policies.FeedPublisher = NoopPublisher{}
)
