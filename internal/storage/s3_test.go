package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket that pages listings two keys at a time.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	ctype   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, ctype: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	f.ctype[*in.Key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + 2
	out := &s3.ListObjectsV2Output{}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	} else {
		end = len(keys)
	}
	now := time.Now()
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: aws.Time(now)})
	}
	return out, nil
}

func TestS3Store_PutGet(t *testing.T) {
	api := newFakeS3()
	s := NewS3StoreWithAPI(api, "bucket")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a/b.json", []byte(`{"x":1}`), "application/json"))
	assert.Equal(t, "application/json", api.ctype["a/b.json"])

	data, err := s.Get(ctx, "a/b.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(data))

	_, err = s.Get(ctx, "a/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3Store_ListFollowsPagination(t *testing.T) {
	api := newFakeS3()
	s := NewS3StoreWithAPI(api, "bucket")
	ctx := context.Background()

	for _, k := range []string{"p/1.json", "p/2.json", "p/3.json", "p/4.json", "p/5.json", "q/1.json"} {
		require.NoError(t, s.Put(ctx, k, []byte("{}"), "application/json"))
	}

	objs, err := s.List(ctx, "p/")
	require.NoError(t, err)
	assert.Len(t, objs, 5)
	require.NoError(t, s.Ping(ctx))
}
