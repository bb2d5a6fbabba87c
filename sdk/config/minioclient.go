// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

// MinioClient talks to S3-compatible stores through the low level minio
// Core API, which exposes each multipart step separately.
type MinioClient struct {
	core   *minio.Core
	bucket string
}

var (
	_ engine.ObjectStore = (*MinioClient)(nil)
	_ ObjectLister       = (*MinioClient)(nil)
)

func NewMinioClient(cfgCreds S3Config) (*MinioClient, error) {
	if cfgCreds.Bucket == "" {
		return nil, errors.New("missing S3 bucket")
	}
	if cfgCreds.EndpointURL == "" {
		return nil, errors.New("minio provider needs an endpoint url")
	}
	u, err := url.Parse(cfgCreds.EndpointURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint url %q", cfgCreds.EndpointURL)
	}

	core, err := minio.NewCore(u.Host, &minio.Options{
		Creds:  miniocreds.NewStaticV4(cfgCreds.AccessKey, cfgCreds.SecretKey, cfgCreds.AccessToken),
		Secure: u.Scheme == "https",
		Region: cfgCreds.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}
	return &MinioClient{core: core, bucket: cfgCreds.Bucket}, nil
}

func (c *MinioClient) Bucket() string { return c.bucket }

func (c *MinioClient) InitiateMultipartUpload(ctx context.Context, key string) (string, error) {
	id, err := c.core.NewMultipartUpload(ctx, c.bucket, key, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", translateMinioError("initiate multipart upload", key, err)
	}
	return id, nil
}

func (c *MinioClient) UploadPart(ctx context.Context, key, session string, index int, payload []byte) (string, error) {
	part, err := c.core.PutObjectPart(ctx, c.bucket, key, session, index+1,
		bytes.NewReader(payload), int64(len(payload)), minio.PutObjectPartOptions{})
	if err != nil {
		return "", translateMinioError("upload part", key, err)
	}
	return part.ETag, nil
}

func (c *MinioClient) CommitMultipartUpload(ctx context.Context, key, session string, partIDs []string) error {
	parts := make([]minio.CompletePart, len(partIDs))
	for i, etag := range partIDs {
		parts[i] = minio.CompletePart{PartNumber: i + 1, ETag: etag}
	}
	_, err := c.core.CompleteMultipartUpload(ctx, c.bucket, key, session, parts, minio.PutObjectOptions{})
	return translateMinioError("complete multipart upload", key, err)
}

func (c *MinioClient) AbortMultipartUpload(ctx context.Context, key, session string) error {
	return translateMinioError("abort multipart upload", key, c.core.AbortMultipartUpload(ctx, c.bucket, key, session))
}

func (c *MinioClient) PutObject(ctx context.Context, key string, payload []byte) error {
	_, err := c.core.PutObject(ctx, c.bucket, key, bytes.NewReader(payload), int64(len(payload)), "", "",
		minio.PutObjectOptions{ContentType: http.DetectContentType(payload)})
	return translateMinioError("put object", key, err)
}

func (c *MinioClient) HeadObject(ctx context.Context, key string) (int64, error) {
	info, err := c.core.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, translateMinioError("head object", key, err)
	}
	return info.Size, nil
}

func (c *MinioClient) GetObjectRange(ctx context.Context, key string, offset, length int64, dst io.Writer) (int64, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return 0, fmt.Errorf("invalid range for %s: %w", key, err)
	}
	body, _, _, err := c.core.GetObject(ctx, c.bucket, key, opts)
	if err != nil {
		return 0, translateMinioError("get range", key, err)
	}
	defer body.Close()

	n, err := io.Copy(dst, body)
	if err != nil {
		return n, translateMinioError("get range", key, err)
	}
	return n, nil
}

func (c *MinioClient) ListFilesAll(ctx context.Context, prefix string) ([]S3File, error) {
	var files []S3File
	for obj := range c.core.Client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, translateMinioError("list objects", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") && obj.Size == 0 {
			continue
		}
		files = append(files, S3File{
			Path:         obj.Key,
			Name:         strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/"),
			Size:         obj.Size,
			LastModified: obj.LastModified.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return files, nil
}

func translateMinioError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	te := &engine.TransportError{Op: op, Key: key, Message: err.Error(), Err: err}
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		te.Status = resp.StatusCode
	}
	if resp.Code != "" {
		te.Message = resp.Code
		if resp.Message != "" {
			te.Message += ": " + resp.Message
		}
		if resp.Code == "NoSuchKey" && te.Status == 0 {
			te.Status = http.StatusNotFound
		}
	}
	return te
}
