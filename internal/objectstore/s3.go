package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/pkg/logger"
)

// S3Config addresses the resume bucket.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Endpoint overrides the AWS endpoint, e.g. for MinIO. Path-style
	// addressing is used when set.
	Endpoint string
}

// Missing lists the environment variables that are not set.
func (c S3Config) Missing() []string {
	var missing []string
	if c.Region == "" {
		missing = append(missing, "AWS_REGION")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if c.Bucket == "" {
		missing = append(missing, "AWS_S3_BUCKET")
	}
	return missing
}

// S3Uploader stores objects in S3. Requests are attempted once.
type S3Uploader struct {
	cfg S3Config
	log *logger.Logger

	mu     sync.Mutex
	client *s3.Client
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader. Credentials are validated on use.
func NewS3Uploader(cfg S3Config, log *logger.Logger) *S3Uploader {
	if log == nil {
		log = logger.NewDefault("objectstore")
	}
	return &S3Uploader{cfg: cfg, log: log}
}

func (u *S3Uploader) Ready() error {
	if missing := u.cfg.Missing(); len(missing) > 0 {
		return svcerrors.Config(fmt.Sprintf("AWS Configuration missing: %s. Please check your environment configuration.", strings.Join(missing, ", ")))
	}
	return nil
}

func (u *S3Uploader) Target() string {
	return u.cfg.Bucket
}

func (u *S3Uploader) s3Client(ctx context.Context) (*s3.Client, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.client != nil {
		return u.client, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(u.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(u.cfg.AccessKeyID, u.cfg.SecretAccessKey, "")),
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, svcerrors.Config("AWS configuration could not be loaded: " + err.Error())
	}

	u.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if u.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(u.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	u.log.WithFields(map[string]interface{}{
		"region":     u.cfg.Region,
		"bucket":     u.cfg.Bucket,
		"access_key": truncateKey(u.cfg.AccessKeyID),
	}).Info("s3 client ready")
	return u.client, nil
}

func (u *S3Uploader) Put(ctx context.Context, key string, f File) error {
	client, err := u.s3Client(ctx)
	if err != nil {
		return err
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(f.Data))),
	})
	if err != nil {
		return svcerrors.Upstream(FriendlyError(err, u.cfg.Bucket), err)
	}
	return nil
}

// Check confirms the credentials can see the bucket.
func (u *S3Uploader) Check(ctx context.Context) error {
	client, err := u.s3Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.cfg.Bucket)}); err != nil {
		return svcerrors.Upstream(FriendlyError(err, u.cfg.Bucket), err)
	}
	return nil
}

// FriendlyError turns an S3 failure into a message an operator can act on.
func FriendlyError(err error, bucket string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId":
			return "Invalid AWS Access Key ID. Please check your credentials."
		case "SignatureDoesNotMatch":
			return "Invalid AWS Secret Access Key. Please check your credentials."
		case "NoSuchBucket", "NotFound":
			return fmt.Sprintf("S3 bucket %q does not exist. Please create it first.", bucket)
		case "AccessDenied", "Forbidden":
			return "Access Denied. Please check your IAM permissions (need s3:PutObject)."
		}
		if m := apiErr.ErrorMessage(); m != "" {
			msg = m
		}
	}

	var netErr net.Error
	switch {
	case strings.Contains(msg, "Access Denied"):
		return "Access Denied. Please check your IAM permissions (need s3:PutObject)."
	case strings.Contains(msg, "CORS"):
		return "CORS error. Please configure CORS on your S3 bucket."
	case errors.As(err, &netErr), strings.Contains(msg, "NetworkingError"), strings.Contains(msg, "Failed to fetch"):
		return "Network error. Check your AWS credentials and bucket configuration."
	}
	return msg
}

func truncateKey(key string) string {
	if len(key) <= 10 {
		return key
	}
	return key[:10] + "..."
}
