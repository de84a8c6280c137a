package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves two list pages and object bodies from memory.
type fakeS3 struct {
	pages   [][]types.Object
	bodies  map[string]string
	lastGet *s3.GetObjectInput
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	i := 0
	if in.ContinuationToken != nil {
		i = 1
	}
	out := &s3.ListObjectsV2Output{Contents: f.pages[i]}
	if i+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("page-2")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGet = in
	body, ok := f.bodies[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func obj(key string, size int64) types.Object {
	return types.Object{Key: aws.String(key), Size: aws.Int64(size)}
}

func TestS3SourceList(t *testing.T) {
	f := &fakeS3{pages: [][]types.Object{
		{obj("in/a.csv", 10), obj("in/notes.txt", 10), obj("in/empty.csv", 0)},
		{obj("in/B.CSV", 5)},
	}}
	keys, err := NewS3Source(f, "bucket").List(context.Background(), "in/")
	require.NoError(t, err)
	assert.Equal(t, []string{"in/a.csv", "in/B.CSV"}, keys)
}

func TestS3SourceOpen(t *testing.T) {
	f := &fakeS3{bodies: map[string]string{"in/a.csv": "Date\n"}}
	src := NewS3Source(f, "bucket")

	rc, err := src.Open(context.Background(), "in/a.csv")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "Date\n", string(b))
	assert.Equal(t, "bucket", aws.ToString(f.lastGet.Bucket))

	_, err = src.Open(context.Background(), "missing.csv")
	assert.Error(t, err)
}
