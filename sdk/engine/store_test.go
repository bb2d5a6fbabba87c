// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

// memStore is an in-memory ObjectStore that records what the engine asked
// of it and how many calls overlapped.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	sessions map[string]*memSession
	nextID   int

	// per call counters
	initiates int
	puts      int
	commits   int
	aborts    int
	heads     int
	gets      int
	partCalls map[string][]int
	// partErrs holds the error each part call returned, by key and index
	partErrs map[string]map[int]error

	// committed part lists and part completion order by key
	committed  map[string][]string
	completion map[string][]int
	commitTime map[string]time.Time
	startTime  map[string]time.Time

	inflight       int
	maxInflight    int
	inflightKey    map[string]int
	maxInflightKey map[string]int

	failPart   func(key string, index int) error
	failCommit func(key string) error
	delay      func(key string, index int) time.Duration
}

type memSession struct {
	key   string
	parts map[int][]byte
}

func newMemStore() *memStore {
	return &memStore{
		objects:        map[string][]byte{},
		sessions:       map[string]*memSession{},
		partCalls:      map[string][]int{},
		partErrs:       map[string]map[int]error{},
		committed:      map[string][]string{},
		completion:     map[string][]int{},
		commitTime:     map[string]time.Time{},
		startTime:      map[string]time.Time{},
		inflightKey:    map[string]int{},
		maxInflightKey: map[string]int{},
	}
}

var _ engine.ObjectStore = (*memStore)(nil)

func (m *memStore) enter(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.startTime[key]; !ok {
		m.startTime[key] = time.Now()
	}
	m.inflight++
	m.maxInflight = max(m.maxInflight, m.inflight)
	m.inflightKey[key]++
	m.maxInflightKey[key] = max(m.maxInflightKey[key], m.inflightKey[key])
}

func (m *memStore) exit(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	m.inflightKey[key]--
}

func (m *memStore) wait(ctx context.Context, key string, index int) error {
	if m.delay == nil {
		return ctx.Err()
	}
	select {
	case <-time.After(m.delay(key, index)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memStore) InitiateMultipartUpload(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.startTime[key]; !ok {
		m.startTime[key] = time.Now()
	}
	m.initiates++
	m.nextID++
	id := fmt.Sprintf("session-%d", m.nextID)
	m.sessions[id] = &memSession{key: key, parts: map[int][]byte{}}
	return id, nil
}

func (m *memStore) UploadPart(ctx context.Context, key, session string, index int, payload []byte) (string, error) {
	m.enter(key)
	defer m.exit(key)

	m.mu.Lock()
	m.partCalls[key] = append(m.partCalls[key], index)
	m.mu.Unlock()

	if err := m.wait(ctx, key, index); err != nil {
		m.partFailed(key, index, err)
		return "", err
	}
	if m.failPart != nil {
		if err := m.failPart(key, index); err != nil {
			m.partFailed(key, index, err)
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[session]
	if !ok || s.key != key {
		return "", &engine.TransportError{Op: "upload part", Key: key, Status: http.StatusNotFound, Message: "NoSuchUpload"}
	}
	s.parts[index] = bytes.Clone(payload)
	m.completion[key] = append(m.completion[key], index)
	sum := md5.Sum(payload)
	return fmt.Sprintf("%d-%s", index+1, hex.EncodeToString(sum[:])), nil
}

func (m *memStore) partFailed(key string, index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.partErrs[key] == nil {
		m.partErrs[key] = map[int]error{}
	}
	m.partErrs[key][index] = err
}

func (m *memStore) CommitMultipartUpload(_ context.Context, key, session string, partIDs []string) error {
	if m.failCommit != nil {
		if err := m.failCommit(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	s, ok := m.sessions[session]
	if !ok {
		return &engine.TransportError{Op: "commit", Key: key, Status: http.StatusNotFound, Message: "NoSuchUpload"}
	}
	var buf bytes.Buffer
	for i, id := range partIDs {
		part, ok := s.parts[i]
		if !ok || id == "" {
			return &engine.TransportError{Op: "commit", Key: key, Status: http.StatusBadRequest, Message: fmt.Sprintf("InvalidPart %d", i+1)}
		}
		buf.Write(part)
	}
	m.objects[key] = buf.Bytes()
	m.committed[key] = append([]string(nil), partIDs...)
	m.commitTime[key] = time.Now()
	delete(m.sessions, session)
	return nil
}

func (m *memStore) AbortMultipartUpload(_ context.Context, _ string, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts++
	delete(m.sessions, session)
	return nil
}

func (m *memStore) PutObject(_ context.Context, key string, payload []byte) error {
	m.enter(key)
	defer m.exit(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.objects[key] = bytes.Clone(payload)
	m.commitTime[key] = time.Now()
	return nil
}

func (m *memStore) HeadObject(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.startTime[key]; !ok {
		m.startTime[key] = time.Now()
	}
	m.heads++
	data, ok := m.objects[key]
	if !ok {
		return 0, &engine.TransportError{Op: "head object", Key: key, Status: http.StatusNotFound, Message: "Not Found"}
	}
	return int64(len(data)), nil
}

func (m *memStore) GetObjectRange(ctx context.Context, key string, offset, length int64, dst io.Writer) (int64, error) {
	m.enter(key)
	defer m.exit(key)

	m.mu.Lock()
	m.gets++
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return 0, &engine.TransportError{Op: "get range", Key: key, Status: http.StatusNotFound, Message: "NoSuchKey"}
	}
	if err := m.wait(ctx, key, int(offset/max(length, 1))); err != nil {
		return 0, err
	}
	if offset+length > int64(len(data)) {
		return 0, &engine.TransportError{Op: "get range", Key: key, Status: http.StatusRequestedRangeNotSatisfiable}
	}
	n, err := io.Copy(dst, bytes.NewReader(data[offset:offset+length]))
	return n, err
}

/* -------------------- helpers -------------------- */

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func md5Of(data []byte) []byte {
	s := md5.Sum(data)
	return s[:]
}

func testConfig(chunkSize int64) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.ChunkSize = chunkSize
	return cfg
}
