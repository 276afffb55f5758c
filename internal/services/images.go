package services

import (
	"context"
	"fmt"
	"time"

	appconfig "crown-voting-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

// ImageService issues pre-signed S3 PUT URLs for candidate image uploads on
// the admin surface. The browser uploads directly to the bucket; the
// resulting public URL is then stored on the candidate.
type ImageService struct {
	s3Client *s3.Client
	bucket   string
	region   string
}

// NewImageService creates a new image service
func NewImageService(ctx context.Context, cfg appconfig.AWSConfig) (*ImageService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ImageService{
		s3Client: s3Client,
		bucket:   cfg.S3Bucket,
		region:   cfg.Region,
	}, nil
}

// ImageUploadResponse carries a pre-signed upload URL and the public URL the
// image will have once uploaded.
type ImageUploadResponse struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	ExpiresIn int    `json:"expires_in"`
}

// PresignCandidateImage generates a pre-signed PUT URL for a candidate image.
func (s *ImageService) PresignCandidateImage(ctx context.Context, candidateID int64, contentType string) (*ImageUploadResponse, error) {
	key := fmt.Sprintf("candidates/%d/%s.jpg", candidateID, uuid.New().String())

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &ImageUploadResponse{
		UploadURL: request.URL,
		ImageURL:  fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}
