package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

// NewS3Client loads credentials from the default AWS chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

type S3Presigner struct {
	client *s3.PresignClient
	bucket string
}

func NewS3Presigner(client *s3.Client, bucket string) *S3Presigner {
	return &S3Presigner{client: s3.NewPresignClient(client), bucket: bucket}
}

func (p *S3Presigner) PresignPut(ctx context.Context, key string, size int64, expires time.Duration) (string, error) {
	if p.bucket == "" {
		return "", errors.New("storage bucket not configured")
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	req, err := p.client.PresignPutObject(ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (p *S3Presigner) PresignDelete(ctx context.Context, key string, expires time.Duration) (string, error) {
	if p.bucket == "" {
		return "", errors.New("storage bucket not configured")
	}
	req, err := p.client.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// ObjectPutter is the slice of the S3 API the audit writer needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Audit writes one object per entry under audit/ in the audit bucket.
type S3Audit struct {
	client ObjectPutter
	bucket string
}

func NewS3Audit(client ObjectPutter, bucket string) *S3Audit {
	return &S3Audit{client: client, bucket: bucket}
}

func AuditKey(e AuditEntry, id string) string {
	return "audit/" + e.Timestamp.UTC().Format("2006/01/02") + "/" + id + ".log"
}

func (a *S3Audit) Record(ctx context.Context, e AuditEntry) error {
	if a.bucket == "" {
		return errors.New("audit bucket not configured")
	}
	id, err := common.NewULID()
	if err != nil {
		return err
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(AuditKey(e, id)),
		Body:        strings.NewReader(e.Line()),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("put audit object: %w", err)
	}
	return nil
}
