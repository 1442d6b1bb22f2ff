// Package objectstore wraps the S3-compatible object storage (MinIO) that
// holds the raw and processed sales files.
package objectstore

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
)

// S3API is the subset of the S3 client used by Client.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, input *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, input *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client performs bucket operations against an S3-compatible endpoint.
type Client struct {
	api S3API
}

// Option configures a Client.
type Option func(*Client)

// WithS3Client sets a custom S3 client (useful for testing).
func WithS3Client(api S3API) Option {
	return func(c *Client) { c.api = api }
}

// New builds a Client for the given endpoint. MinIO requires path-style
// addressing and static credentials.
func New(ctx context.Context, endpoint, accessKey, secretKey string, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, o := range opts {
		o(c)
	}
	if c.api == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("us-east-1"),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
			),
		)
		if err != nil {
			return nil, errors.Wrap(err, "loading s3 config")
		}
		c.api = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return c, nil
}

// Upload writes body to bucket/key.
func (c *Client) Upload(ctx context.Context, bucket, key string, body []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return errors.Wrapf(err, "uploading %s/%s", bucket, key)
}

// Download returns the contents of bucket/key.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "downloading %s/%s", bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	return data, errors.Wrapf(err, "reading %s/%s", bucket, key)
}

// Exists reports whether bucket/key is present.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking %s/%s", bucket, key)
	}
	return true, nil
}

// List returns all object keys in bucket.
func (c *Client) List(ctx context.Context, bucket string) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	for {
		out, err := c.api.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %s", bucket)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return keys, nil
}

// Move relocates an object via copy-then-delete. Moving an already-moved
// object is a no-op: if the source is gone but the destination exists the
// call succeeds without touching anything.
func (c *Client) Move(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	srcExists, err := c.Exists(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	if !srcExists {
		dstExists, err := c.Exists(ctx, dstBucket, dstKey)
		if err != nil {
			return err
		}
		if dstExists {
			return nil
		}
		return errors.Errorf("object %s/%s not found", srcBucket, srcKey)
	}

	_, err = c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + srcKey),
	})
	if err != nil {
		return errors.Wrapf(err, "copying %s/%s to %s/%s", srcBucket, srcKey, dstBucket, dstKey)
	}

	_, err = c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(srcKey),
	})
	return errors.Wrapf(err, "deleting %s/%s after copy", srcBucket, srcKey)
}
