// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/dataset-transfer-sdk/sdk/engine"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "no", input: "n\n", def: true, want: false},
		{name: "empty takes default", input: "\n", def: true, want: true},
		{name: "retry after invalid", input: "maybe\nyes\n", want: true},
		{name: "eof without newline", input: "y", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(strings.NewReader(tt.input), &out, "Overwrite? [y/n] ", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Overwrite?")
		})
	}

	_, err := Confirm(strings.NewReader(""), &bytes.Buffer{}, "?", false)
	require.Error(t, err)
}

func TestRender(t *testing.T) {
	v := map[string]any{"dataset_id": "abc", "files": 2}

	var js bytes.Buffer
	require.NoError(t, Render(&js, v, "json"))
	assert.JSONEq(t, `{"dataset_id":"abc","files":2}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, Render(&ym, v, "yml"))
	assert.Equal(t, "dataset_id: abc\nfiles: 2\n", ym.String())
}

func TestTranslateFormat(t *testing.T) {
	assert.Equal(t, "json", TranslateFormat("JSON"))
	assert.Equal(t, "yaml", TranslateFormat("yml"))
	assert.Equal(t, "short", TranslateFormat(""))
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("s3://bucket/prefix/ds/dir/a.bin")
	require.NoError(t, err)
	assert.Equal(t, "bucket", p.Bucket)
	assert.Equal(t, "prefix/ds/dir/a.bin", p.Key)
	assert.Equal(t, "s3://bucket/prefix/ds/dir/a.bin", p.String())

	for _, bad := range []string{"https://host/a", "s3:///a", "s3://bucket/dir/", "::"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePath_KeyRoundTrip(t *testing.T) {
	for _, rel := range []string{"run#2/a.bin", "what?/b.bin", "100%/c.bin", "with space/d.bin", "è/ü.bin"} {
		key := ObjectKey("p", "ds", rel)
		raw := ParsedPath{Scheme: "s3", Bucket: "bucket", Key: key}.String()

		p, err := ParsePath(raw)
		require.NoError(t, err, rel)
		assert.Equal(t, key, p.Key, rel)
		assert.Equal(t, "bucket", p.Bucket, rel)
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "raw/ds-1/cam/0.jpg", ObjectKey("/raw/", "ds-1", "cam/0.jpg"))
	assert.Equal(t, "ds-1/cam/0.jpg", ObjectKey("", "ds-1", "cam/0.jpg"))
}

func TestLineRenderer(t *testing.T) {
	var out bytes.Buffer
	lr := NewLineRenderer(&out, "Uploading")

	lr.Update(engine.Snapshot{DoneBytes: 512, TotalBytes: 1024, Active: 1})
	assert.Contains(t, out.String(), "50.00%")

	// throttled
	before := out.Len()
	lr.Update(engine.Snapshot{DoneBytes: 600, TotalBytes: 1024, Active: 1})
	assert.Equal(t, before, out.Len())

	lr.Finish(engine.Snapshot{DoneBytes: 1024, TotalBytes: 1024, Completed: 1, Failed: 1})
	assert.Contains(t, out.String(), "100.00%")
	assert.Contains(t, out.String(), "1 failed")
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestBarRenderer(t *testing.T) {
	var out bytes.Buffer
	br := NewBarRenderer(&out, "Downloading", 2048, 2)
	br.Update(engine.Snapshot{DoneBytes: 1024, TotalBytes: 2048, Active: 2})
	br.Finish(engine.Snapshot{DoneBytes: 1024, TotalBytes: 1024, Completed: 1, Failed: 1})
	assert.Contains(t, out.String(), "Downloading")
}
