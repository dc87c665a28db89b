package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"forum-service/internal/config"
)

const (
	defaultPresignExpiry = 15 * time.Minute
	attachmentPrefix     = "attachments"
)

// Client stores post attachments in S3. Uploads and downloads go
// through presigned URLs; the service never proxies file bytes.
type Client struct {
	svc           *s3.S3
	bucket        string
	presignExpiry time.Duration
}

func NewClient(cfg *config.AWSConfig) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &Client{
		svc:           s3.New(sess),
		bucket:        cfg.AttachmentBucket,
		presignExpiry: defaultPresignExpiry,
	}, nil
}

// AttachmentKey builds the object key for a new attachment, namespaced
// by owner so keys never collide across users.
func AttachmentKey(userID string) string {
	return fmt.Sprintf("%s/%s/%s", attachmentPrefix, userID, uuid.New().String())
}

// PresignUpload returns a URL the browser can PUT the attachment to.
func (c *Client) PresignUpload(ctx context.Context, objectKey, contentType string) (string, error) {
	req, _ := c.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(c.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}
	return url, nil
}

// PresignDownload returns a URL the browser can fetch the attachment
// from.
func (c *Client) PresignDownload(ctx context.Context, objectKey string) (string, error) {
	req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	req.SetContext(ctx)

	url, err := req.Presign(c.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return url, nil
}

// DeleteObject removes an attachment.
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
