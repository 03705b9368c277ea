package library

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Mirror は保存済みアセットをS3バケットへアップロードする
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Mirror は既定の認証情報チェーンでS3Mirrorを作成する
func NewS3Mirror(ctx context.Context, bucket, region, prefix string) (*S3Mirror, error) {
	slog.Info("S3ミラーを初期化します", "bucket", bucket, "region", region, "prefix", prefix)

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}

	return &S3Mirror{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Upload はJPEGデータをバケットに保存する
func (m *S3Mirror) Upload(ctx context.Context, key string, data []byte) error {
	objectKey := path.Join(m.prefix, key)

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("S3へのアップロードに失敗: %w", err)
	}

	slog.Info("S3へアップロードしました", "bucket", m.bucket, "key", objectKey, "size", len(data))
	return nil
}
