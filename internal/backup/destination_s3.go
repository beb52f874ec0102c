package backup

import (
	"fmt"
	"io"
	"log"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/yourusername/backup-manager/internal/config"
)

// S3Destination copies archives to AWS S3 or S3-compatible storage
type S3Destination struct {
	cfg      *config.DestinationConfig
	s3Client *s3.S3
}

// NewS3Destination creates a new S3 destination
func NewS3Destination(cfg *config.DestinationConfig) (*S3Destination, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		),
	}

	// Custom endpoint for S3-compatible storage (MinIO, Spaces, etc.)
	if cfg.S3Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Destination{
		cfg:      cfg,
		s3Client: s3.New(sess),
	}, nil
}

// Upload uploads an archive to S3
func (sd *S3Destination) Upload(filename string, reader io.Reader, sizeBytes int64) error {
	key := path.Join(sd.cfg.Path, filename)
	log.Printf("[S3Dest] Uploading %s to s3://%s/%s (%d bytes)",
		filename, sd.cfg.S3Bucket, key, sizeBytes)

	body, ok := reader.(io.ReadSeeker)
	if !ok {
		return fmt.Errorf("s3 upload requires a seekable reader")
	}

	_, err := sd.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(sd.cfg.S3Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(sizeBytes),
		ContentType:   aws.String("application/zip"),
		StorageClass:  aws.String("STANDARD"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// GetType returns the destination type
func (sd *S3Destination) GetType() string {
	return "s3"
}
