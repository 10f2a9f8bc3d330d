package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/visionauth/internal/config"
)

type fakeS3 struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.contentTypes[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := New(fake, "visionauth", "demo")

	got, err := s.Get(ctx, "demo_user")
	require.NoError(t, err)
	assert.Nil(t, got, "missing object reads as nil")

	require.NoError(t, s.Set(ctx, "demo_user", []byte(`{"id":"1"}`)))
	assert.Contains(t, fake.objects, "visionauth/demo/demo_user.json")
	assert.Equal(t, "application/json", fake.contentTypes["visionauth/demo/demo_user.json"])

	got, err = s.Get(ctx, "demo_user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(got))

	require.NoError(t, s.Delete(ctx, "demo_user"))
	got, err = s.Get(ctx, "demo_user")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := New(fake, "visionauth", "")

	err := s.Set(context.Background(), "auth_logs", []byte(`[]`))
	assert.ErrorIs(t, err, fake.putErr)
}

func TestNew_PrefixNormalization(t *testing.T) {
	assert.Equal(t, "a/b/k.json", New(nil, "bucket", "a/b").objectKey("k"))
	assert.Equal(t, "a/k.json", New(nil, "bucket", "a/").objectKey("k"))
	assert.Equal(t, "k.json", New(nil, "bucket", "").objectKey("k"))
}

func TestOpen_RequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), &config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, isNotFound(nil))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.True(t, isNotFound(&types.NoSuchKey{}))
}
