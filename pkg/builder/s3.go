package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/s3client"
)

// NewS3ClientStatic creates an S3 client using static credentials.
func NewS3ClientStatic(ctx context.Context, region, accessKey, secretKey, sessionToken, endpoint string, forcePathStyle bool) (*s3.Client, error) {
	return s3client.NewS3ClientStatic(ctx, region, accessKey, secretKey, sessionToken, endpoint, forcePathStyle)
}

// NewS3ClientAssumeRole creates an S3 client by assuming roleARN via STS.
func NewS3ClientAssumeRole(
	ctx context.Context,
	region string,
	roleARN string,
	sessionName string,
	duration time.Duration,
	externalID string,
	sourceCreds aws.CredentialsProvider,
	endpoint string,
	forcePathStyle bool,
) (*s3.Client, error) {
	return s3client.NewS3ClientAssumeRole(ctx, region, roleARN, sessionName, duration, externalID, sourceCreds, endpoint, forcePathStyle)
}

// LocalstackS3Config sets up defaults for LocalStack clients.
type LocalstackS3Config struct {
	RoleARN     string
	SessionName string
	Region      string
	Duration    time.Duration
	Endpoint    string
	AccessKey   string
	SecretKey   string
}

// NewS3ClientLocalstack builds an S3 client with LocalStack defaults. A
// non-empty RoleARN assumes that role with the static keys as source.
func NewS3ClientLocalstack(ctx context.Context, cfg LocalstackS3Config) (*s3.Client, error) {
	if cfg.SessionName == "" {
		cfg.SessionName = "foodback"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Duration == 0 {
		cfg.Duration = 15 * time.Minute
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4566"
	}
	if cfg.AccessKey == "" {
		cfg.AccessKey = "test"
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = "test"
	}
	if cfg.RoleARN == "" {
		return s3client.NewS3ClientStatic(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey, "", cfg.Endpoint, true)
	}
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""))
	return s3client.NewS3ClientAssumeRole(ctx, cfg.Region, cfg.RoleARN, cfg.SessionName, cfg.Duration, "", creds, cfg.Endpoint, true)
}

// newS3Client picks assume-role or static credentials from cfg.
func newS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	pathStyle := cfg.S3Endpoint != ""
	if cfg.S3RoleARN != "" {
		var source aws.CredentialsProvider
		if cfg.S3AccessKey != "" {
			source = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""))
		}
		return s3client.NewS3ClientAssumeRole(ctx, cfg.S3Region, cfg.S3RoleARN, "foodback", 15*time.Minute, "", source, cfg.S3Endpoint, pathStyle)
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("s3 archive needs FOODBACK_S3_ACCESS_KEY/FOODBACK_S3_SECRET_KEY or FOODBACK_S3_ROLE_ARN")
	}
	return s3client.NewS3ClientStatic(ctx, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, "", cfg.S3Endpoint, pathStyle)
}
