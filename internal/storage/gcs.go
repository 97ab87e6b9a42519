// Package storage 帖子和社区图片的对象存储
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var ErrDisabled = errors.New("object storage not configured")

func PostImagePath(postID string) string {
	return fmt.Sprintf("posts/%s/image", postID)
}

func CommunityImagePath(communityID string) string {
	return fmt.Sprintf("communities/%s/image", communityID)
}

// PublicURL 对象的公开访问地址
func PublicURL(bucket, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: path}).EscapedPath())
}

type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS credentialsFile 为空时使用默认凭据
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload gs://%s/%s: %w", g.bucket, path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close GCS writer for %s: %w", path, err)
	}
	return PublicURL(g.bucket, path), nil
}

// Delete 对象不存在视为成功
func (g *GCS) Delete(ctx context.Context, path string) error {
	err := g.client.Bucket(g.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gs://%s/%s: %w", g.bucket, path, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// Disabled 没有配置 bucket 时使用，上传直接报错，删除忽略
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return nil
}
