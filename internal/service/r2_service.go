package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/zinye/socialflow/configs"
)

// R2Service stores media files in Cloudflare R2 through the S3 API.
type R2Service struct {
	bucket string
	client *s3.Client
}

func NewR2Service(c cfg.Config) *R2Service {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.R2.AccessKey, c.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		log.Fatal(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
	})

	return &R2Service{bucket: c.R2.BucketName, client: client}
}

// UploadToR2 stores a media file in the bucket under the given key.
func (r *R2Service) UploadToR2(ctx context.Context, key string, file []byte, filetype string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(filetype),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
