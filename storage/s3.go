package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3InventoryState implements InventoryState backed by S3

type S3InventoryState struct {
	bucket string
	key    string
	s3     *s3.Client
}

func NewS3InventoryState(s3Client *s3.Client, bucket, key string) *S3InventoryState {
	return &S3InventoryState{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3InventoryState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// S3HistoryState implements HistoryState backed by S3

type S3HistoryState struct {
	bucket string
	key    string
	s3     *s3.Client
}

func NewS3HistoryState(s3Client *s3.Client, bucket, key string) *S3HistoryState {
	return &S3HistoryState{
		bucket: bucket,
		key:    key,
		s3:     s3Client,
	}
}

func (s *S3HistoryState) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
