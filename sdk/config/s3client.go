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
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

// S3API is the subset of *s3.Client the transfer store needs.
type S3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

type S3Client struct {
	s3     S3API
	bucket string
}

var (
	_ engine.ObjectStore = (*S3Client)(nil)
	_ ObjectLister       = (*S3Client)(nil)
)

func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	if cfgCreds.Bucket == "" {
		return nil, errors.New("missing S3 bucket")
	}
	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		cfgCreds.AccessKey,
		cfgCreds.SecretKey,
		cfgCreds.AccessToken,
	))

	region := cfgCreds.Region
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Options := func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			o.UsePathStyle = true // required by most S3-compatible stores
		}
	}
	client := s3.NewFromConfig(cfg, s3Options)

	// no region configured on AWS proper: ask the bucket where it lives
	if cfgCreds.Region == "" && cfgCreds.EndpointURL == "" {
		found, err := manager.GetBucketRegion(ctx, client, cfgCreds.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve region of bucket %s: %w", cfgCreds.Bucket, err)
		}
		cfg.Region = found
		client = s3.NewFromConfig(cfg, s3Options)
	}

	return NewS3ClientFromAPI(client, cfgCreds.Bucket), nil
}

// NewS3ClientFromAPI wraps an existing client, typically a mock in tests.
func NewS3ClientFromAPI(api S3API, bucket string) *S3Client {
	return &S3Client{s3: api, bucket: bucket}
}

func (c *S3Client) Bucket() string { return c.bucket }

/* -------------------- MULTIPART -------------------- */

func (c *S3Client) InitiateMultipartUpload(ctx context.Context, key string) (string, error) {
	out, err := c.s3.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", translateS3Error("initiate multipart upload", key, err)
	}
	return aws.ToString(out.UploadId), nil
}

func (c *S3Client) UploadPart(ctx context.Context, key, session string, index int, payload []byte) (string, error) {
	out, err := c.s3.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(session),
		PartNumber:    aws.Int32(int32(index + 1)),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
	})
	if err != nil {
		return "", translateS3Error("upload part", key, err)
	}
	return aws.ToString(out.ETag), nil
}

func (c *S3Client) CommitMultipartUpload(ctx context.Context, key, session string, partIDs []string) error {
	parts := make([]s3types.CompletedPart, len(partIDs))
	for i, etag := range partIDs {
		parts[i] = s3types.CompletedPart{
			ETag:       aws.String(etag),
			PartNumber: aws.Int32(int32(i + 1)),
		}
	}
	_, err := c.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(session),
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: parts},
	})
	return translateS3Error("complete multipart upload", key, err)
}

func (c *S3Client) AbortMultipartUpload(ctx context.Context, key, session string) error {
	_, err := c.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(session),
	})
	return translateS3Error("abort multipart upload", key, err)
}

/* -------------------- SINGLE OBJECT -------------------- */

func (c *S3Client) PutObject(ctx context.Context, key string, payload []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(http.DetectContentType(payload)),
	})
	return translateS3Error("put object", key, err)
}

func (c *S3Client) HeadObject(ctx context.Context, key string) (int64, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, translateS3Error("head object", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (c *S3Client) GetObjectRange(ctx context.Context, key string, offset, length int64, dst io.Writer) (int64, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
	})
	if err != nil {
		return 0, translateS3Error("get range", key, err)
	}
	defer out.Body.Close()

	n, err := io.Copy(dst, out.Body)
	if err != nil {
		return n, translateS3Error("get range", key, err)
	}
	return n, nil
}

/* -------------------- LIST (paged) -------------------- */

type S3File struct {
	Path         string `json:"path"         yaml:"path"`
	Name         string `json:"name"         yaml:"name"`
	Size         int64  `json:"size"         yaml:"size"`
	LastModified string `json:"lastModified" yaml:"lastModified"`
}

// ObjectLister enumerates objects under a prefix. Folder placeholders are
// skipped and Name is the key relative to the prefix.
type ObjectLister interface {
	ListFilesAll(ctx context.Context, prefix string) ([]S3File, error)
}

func (c *S3Client) ListFilesPaged(
	ctx context.Context,
	prefix string,
	maxKeys *int32,
	continuationToken *string,
) ([]S3File, *string, error) {
	resp, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(c.bucket),
		Prefix:            aws.String(prefix),
		MaxKeys:           maxKeys,
		ContinuationToken: continuationToken,
	})
	if err != nil {
		return nil, nil, translateS3Error("list objects", prefix, err)
	}

	files := make([]S3File, 0, len(resp.Contents))
	for _, obj := range resp.Contents {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, "/") && aws.ToInt64(obj.Size) == 0 {
			continue
		}
		f := S3File{
			Path: key,
			Name: strings.TrimPrefix(strings.TrimPrefix(key, prefix), "/"),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			f.LastModified = obj.LastModified.Format("2006-01-02T15:04:05Z07:00")
		}
		files = append(files, f)
	}
	return files, resp.NextContinuationToken, nil
}

func (c *S3Client) ListFilesAll(ctx context.Context, prefix string) ([]S3File, error) {
	var allFiles []S3File
	var token *string
	pageSize := int32(1000)

	for {
		files, nextToken, err := c.ListFilesPaged(ctx, prefix, &pageSize, token)
		if err != nil {
			return nil, err
		}
		allFiles = append(allFiles, files...)
		if nextToken == nil || *nextToken == "" {
			break
		}
		token = nextToken
	}
	return allFiles, nil
}

/* -------------------- ERRORS -------------------- */

func translateS3Error(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	te := &engine.TransportError{Op: op, Key: key, Message: err.Error(), Err: err}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		te.Status = re.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		te.Message = apiErr.ErrorCode()
		if msg := apiErr.ErrorMessage(); msg != "" {
			te.Message += ": " + msg
		}
		switch apiErr.(type) {
		case *s3types.NotFound, *s3types.NoSuchKey:
			te.Status = http.StatusNotFound
		}
	}
	return te
}
