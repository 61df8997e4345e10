package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// FilesystemOptions converts the filesystem section into vfs.Options.
//
// Identity, Events, Clock, IDs and Metrics are left unset; callers wire them
// to their runtime collaborators.
func FilesystemOptions(cfg *FilesystemConfig) (vfs.Options, error) {
	opts := vfs.DefaultOptions()

	if cfg.SoftDelete != nil {
		opts.SoftDelete = *cfg.SoftDelete
	}
	if cfg.LockTTL > 0 {
		opts.LockTTL = cfg.LockTTL
	}
	if cfg.MaxVersions != nil {
		opts.MaxVersions = *cfg.MaxVersions
	}
	if cfg.RecentLimit > 0 {
		opts.RecentLimit = cfg.RecentLimit
	}
	if cfg.RootMode != "" {
		mode, err := vfs.ParseMode(cfg.RootMode)
		if err != nil {
			return opts, fmt.Errorf("filesystem.root_mode: %w", err)
		}
		opts.RootMode = mode
	}

	return opts, nil
}

// Principal returns the identity section as a vfs.Principal.
func Principal(cfg *IdentityConfig) vfs.Principal {
	return vfs.Principal{
		Username: cfg.Username,
		Role:     vfs.Role(cfg.Role),
		Groups:   append([]string(nil), cfg.Groups...),
	}
}

// CreateS3Client creates an S3 client from configuration.
//
// Static credentials are used when both keys are set, otherwise the default
// AWS credential chain applies. A custom endpoint (MinIO, Localstack, etc.)
// switches the client to path-style addressing.
func CreateS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug("S3 client initialized: bucket=%s region=%s endpoint=%s",
		cfg.Bucket, cfg.Region, cfg.Endpoint)

	return client, nil
}
