// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/config"
	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

const minioBucket = "datasets"

type completedPart struct {
	PartNumber int
	ETag       string
}

// fakeS3 answers the subset of the S3 REST API the minio client uses.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	parts     map[int][]byte
	completed []completedPart
	denyPut   bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/"+minioBucket+"/")
	q := r.URL.Query()
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodPost && q.Has("uploads"):
		fmt.Fprintf(w, `<InitiateMultipartUploadResult><Bucket>%s</Bucket><Key>%s</Key><UploadId>up-1</UploadId></InitiateMultipartUploadResult>`, minioBucket, key)

	case r.Method == http.MethodPut && q.Has("partNumber"):
		n, _ := strconv.Atoi(q.Get("partNumber"))
		f.parts[n] = body
		w.Header().Set("ETag", fmt.Sprintf(`"etag-%d"`, n))

	case r.Method == http.MethodPost && q.Has("uploadId"):
		var doc struct {
			Parts []completedPart `xml:"Part"`
		}
		if err := xml.Unmarshal(body, &doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.completed = doc.Parts
		var obj []byte
		for _, p := range doc.Parts {
			obj = append(obj, f.parts[p.PartNumber]...)
		}
		f.objects[key] = obj
		fmt.Fprintf(w, `<CompleteMultipartUploadResult><Bucket>%s</Bucket><Key>%s</Key><ETag>"final"</ETag></CompleteMultipartUploadResult>`, minioBucket, key)

	case r.Method == http.MethodPut:
		if f.denyPut {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, `<Error><Code>AccessDenied</Code><Message>Access Denied.</Message><Key>%s</Key><BucketName>%s</BucketName></Error>`, key, minioBucket)
			return
		}
		f.objects[key] = body
		w.Header().Set("ETag", `"single"`)

	case r.Method == http.MethodHead || r.Method == http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"obj"`)
		w.Header().Set("Last-Modified", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("Content-Type", "application/octet-stream")
		status := http.StatusOK
		if rng := r.Header.Get("Range"); rng != "" {
			var from, to int
			_, _ = fmt.Sscanf(rng, "bytes=%d-%d", &from, &to)
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", from, to, len(obj)))
			obj = obj[from : to+1]
			status = http.StatusPartialContent
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(obj)))
		w.WriteHeader(status)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj)
		}

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newMinioFixture(t *testing.T) (*config.MinioClient, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, parts: map[int][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := config.NewMinioClient(config.S3Config{
		AccessKey:   "minio",
		SecretKey:   "minio123",
		Region:      "us-east-1",
		EndpointURL: srv.URL,
		Bucket:      minioBucket,
	})
	require.NoError(t, err)
	return c, fake
}

func TestMinioClient_MultipartCommitsPartsInOrder(t *testing.T) {
	c, fake := newMinioFixture(t)
	ctx := context.Background()
	key := "raw/ds/a.bin"

	session, err := c.InitiateMultipartUpload(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "up-1", session)

	chunks := [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cc")}
	ids := make([]string, len(chunks))
	for _, i := range []int{2, 0, 1} {
		ids[i], err = c.UploadPart(ctx, key, session, i, chunks[i])
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"etag-1", "etag-2", "etag-3"}, ids)
	assert.Equal(t, []byte("cc"), fake.parts[3])

	require.NoError(t, c.CommitMultipartUpload(ctx, key, session, ids))
	require.Len(t, fake.completed, 3)
	for i, p := range fake.completed {
		assert.Equal(t, i+1, p.PartNumber)
		assert.Equal(t, fmt.Sprintf("etag-%d", i+1), strings.Trim(p.ETag, `"`))
	}
	assert.Equal(t, []byte("aaaabbbbcc"), fake.objects[key])

	size, err := c.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	var buf bytes.Buffer
	n, err := c.GetObjectRange(ctx, key, 4, 4, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "bbbb", buf.String())
}

func TestMinioClient_HeadMissingIsNotFound(t *testing.T) {
	c, _ := newMinioFixture(t)

	_, err := c.HeadObject(context.Background(), "raw/ds/missing.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	var te *engine.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.Equal(t, "head object", te.Op)
}

func TestMinioClient_ErrorResponseKeepsStatus(t *testing.T) {
	c, fake := newMinioFixture(t)
	fake.denyPut = true

	err := c.PutObject(context.Background(), "raw/ds/a.bin", []byte("payload"))
	var te *engine.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.Status)
	assert.Contains(t, te.Message, "AccessDenied")
	assert.NotErrorIs(t, err, engine.ErrNotFound)
}

func TestMinioClient_CancelledContextPassesThrough(t *testing.T) {
	c, _ := newMinioFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.HeadObject(ctx, "raw/ds/a.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var te *engine.TransportError
	assert.False(t, errors.As(err, &te))
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := config.NewMinioClient(config.S3Config{EndpointURL: "http://localhost:9000"})
	assert.Error(t, err)
	_, err = config.NewMinioClient(config.S3Config{Bucket: minioBucket})
	assert.Error(t, err)
	_, err = config.NewMinioClient(config.S3Config{Bucket: minioBucket, EndpointURL: "not a url"})
	assert.Error(t, err)
}
