package cibuild

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LogStore wraps the S3 client used for archiving build logs on an
// S3-compatible bucket. The feature is optional: nodes without
// credentials in their config never construct one.
type LogStore struct {
	Client     *s3.Client
	BucketName string
}

// NewLogStore initializes the log store from configuration values.
func NewLogStore(cfg *Config) (*LogStore, error) {
	accountID := cfg.Values["LOG_ACCOUNT_ID"]
	accessKey := cfg.Values["LOG_ACCESS_KEY_ID"]
	secretKey := cfg.Values["LOG_SECRET_ACCESS_KEY"]
	bucketName := cfg.Values["LOG_BUCKET_NAME"]

	if accountID == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, fmt.Errorf("log store credentials missing in configuration (LOG_ACCOUNT_ID, LOG_ACCESS_KEY_ID, LOG_SECRET_ACCESS_KEY, LOG_BUCKET_NAME)")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
		}, nil
	})

	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion("auto"),
	}

	if Debug {
		options = append(options, awsconfig.WithClientLogMode(aws.LogSigning|aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load log store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &LogStore{
		Client:     client,
		BucketName: bucketName,
	}, nil
}

// UploadLocalFile uploads a file from disk under the given key.
func (ls *LogStore) UploadLocalFile(ctx context.Context, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = ls.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(ls.BucketName),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(stat.Size()),
		ContentType:   aws.String("application/x-xz"),
	})
	return err
}

// logObjectKey names the uploaded log: node and platform for browsing,
// a date plus short content hash for uniqueness across runs.
func logObjectKey(node, platform string) string {
	stamp := time.Now().UTC().Format("2006-01-02")
	id := hashString(fmt.Sprintf("%s/%s/%d", node, platform, os.Getpid()))
	return path.Join("logs", node, platform, fmt.Sprintf("%s-%s.log.xz", stamp, id))
}

// uploadBuildLog pushes the compressed log when the node is configured
// for it. Upload problems are warnings: archiving must never change the
// build result.
func uploadBuildLog(ctx context.Context, cfg *Config, node, platform, xzPath string) {
	if cfg.Values["LOG_BUCKET_NAME"] == "" {
		return
	}
	store, err := NewLogStore(cfg)
	if err != nil {
		colWarn.Printf("Warning: log store unavailable: %v\n", err)
		return
	}
	key := logObjectKey(node, platform)
	if err := store.UploadLocalFile(ctx, key, xzPath); err != nil {
		colWarn.Printf("Warning: failed to upload build log: %v\n", err)
		return
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Build log archived as %s\n", key)
}
