package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Options struct {
	Bucket      string
	Region      string
	EndpointURL string
	AccessKey   string
	SecretKey   string
	// PublicURL is the base for object URLs (CDN or vanity domain). When empty
	// the virtual-hosted AWS form is used.
	PublicURL string
}

// S3Uploader stores images in any S3-compatible bucket.
type S3Uploader struct {
	client *s3.Client
	opts   S3Options
}

func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not set")
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}

	credentialsProvider := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(opts.Region),
		awsConfig.WithCredentialsProvider(credentialsProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, opts: opts}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.opts.Bucket),
		Key:         aws.String(objectPath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return u.PublicURL(objectPath), nil
}

func (u *S3Uploader) Remove(ctx context.Context, objectPaths []string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, len(objectPaths))
	for i, p := range objectPaths {
		objects[i] = types.ObjectIdentifier{Key: aws.String(p)}
	}
	_, err := u.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(u.opts.Bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}

func (u *S3Uploader) PublicURL(objectPath string) string {
	return S3PublicURL(u.opts, objectPath)
}

// S3PublicURL resolves the URL an uploaded object is served from.
func S3PublicURL(opts S3Options, objectPath string) string {
	if opts.PublicURL != "" {
		return strings.TrimSuffix(opts.PublicURL, "/") + "/" + objectPath
	}
	if opts.EndpointURL != "" {
		return strings.TrimSuffix(opts.EndpointURL, "/") + "/" + opts.Bucket + "/" + objectPath
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", opts.Bucket, opts.Region, objectPath)
}

// ObjectPathFromURL recovers the object key from a URL produced by PublicURL.
func (u *S3Uploader) ObjectPathFromURL(url string) (string, bool) {
	base := strings.TrimSuffix(u.PublicURL(""), "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	return strings.TrimPrefix(url, base), true
}
