// Package s3store implements the blob store on Amazon S3 with presigned read
// URLs.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"room-designer/internal/domain"
)

// DefaultMaxObjectBytes caps how much of an object Get will read.
const DefaultMaxObjectBytes int64 = 32 << 20

// ErrObjectTooLarge is returned by Get for objects above the read limit.
var ErrObjectTooLarge = errors.New("s3store: object exceeds read limit")

// s3API is the minimal S3 interface required by Client.
// *s3.Client satisfies it.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// presignAPI is satisfied by *s3.PresignClient.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Client stores objects in a single bucket.
type Client struct {
	api      s3API
	presign  presignAPI
	bucket   string
	maxBytes int64
}

type Option func(*Client)

// WithMaxObjectBytes raises or lowers the Get limit. Non-positive values are
// ignored.
func WithMaxObjectBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// New creates a Client. Use NewFromS3 to derive the presigner from an SDK client.
func New(api s3API, presign presignAPI, bucket string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("s3store: api must not be nil")
	}
	if presign == nil {
		return nil, errors.New("s3store: presigner must not be nil")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("s3store: bucket must not be empty")
	}
	c := &Client{api: api, presign: presign, bucket: bucket, maxBytes: DefaultMaxObjectBytes}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromS3 wires both the object API and the presigner from one SDK client.
func NewFromS3(client *s3.Client, bucket string, opts ...Option) (*Client, error) {
	if client == nil {
		return nil, errors.New("s3store: client must not be nil")
	}
	return New(client, s3.NewPresignClient(client), bucket, opts...)
}

// Put uploads data under key and returns the key.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("s3store: key is required")
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3store: put %q: %w", key, err)
	}
	return key, nil
}

// Get downloads an object. Missing keys wrap domain.ErrBlobNotFound.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3store: get %q: %w", key, domain.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("s3store: get %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(out.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("s3store: read %q: %w", key, err)
	}
	if int64(len(buf)) > c.maxBytes {
		return nil, fmt.Errorf("s3store: get %q: %w (limit %d bytes)", key, ErrObjectTooLarge, c.maxBytes)
	}
	return buf, nil
}

// AccessURL returns a presigned GET URL valid for ttl.
func (c *Client) AccessURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3store: presign %q: %w", key, err)
	}
	if req == nil || req.URL == "" {
		return "", fmt.Errorf("s3store: presign %q returned no url", key)
	}
	return req.URL, nil
}

// ResolveKey recovers an object key from a URL this bucket issued. It handles
// virtual-hosted style (bucket in the host) and path style (bucket as the
// first path segment). Custom domains or access points may not round-trip.
func (c *Client) ResolveKey(accessURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(accessURL))
	if err != nil {
		return "", fmt.Errorf("s3store: parse access url: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if !strings.HasPrefix(u.Host, c.bucket+".") {
		key = strings.TrimPrefix(key, c.bucket+"/")
	}
	if key == "" {
		return "", fmt.Errorf("s3store: access url for host %q has no key", u.Host)
	}
	return key, nil
}
