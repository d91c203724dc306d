package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client/metadata"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCtx = context.Background()

func TestNewImageKey(t *testing.T) {
	key := NewImageKey("Roof.PNG")
	assert.True(t, strings.HasPrefix(key, "campaigns/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, NewImageKey("Roof.PNG"))
}

func TestLocal_Put(t *testing.T) {
	root := t.TempDir()
	stor, err := NewLocal(root, "localhost:8080/", zap.NewNop())
	require.NoError(t, err)

	url, err := stor.Put(testCtx, "campaigns/a.png", bytes.NewBufferString("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/campaigns/a.png", url)

	data, err := os.ReadFile(filepath.Join(root, "campaigns", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, stor.Delete(testCtx, "campaigns/a.png"))
	_, err = os.Stat(filepath.Join(root, "campaigns", "a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_KeyCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	stor, err := NewLocal(filepath.Join(root, "uploads"), "http://host", zap.NewNop())
	require.NoError(t, err)

	_, err = stor.Put(testCtx, "../../escape.png", bytes.NewBufferString("x"), "image/png")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "uploads", "escape.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_EmptyPublicURL(t *testing.T) {
	_, err := NewLocal(t.TempDir(), "", zap.NewNop())
	assert.Error(t, err)
}

func TestS3_Put(t *testing.T) {
	files := make(map[string][]byte)
	stor := newMockS3(files)

	url, err := stor.Put(testCtx, "campaigns/b.jpg", bytes.NewBuffer([]byte{1, 5, 7, 8, 3}), "image/jpeg")
	assert.NoError(t, err)
	assert.Equal(t, "https://mock-bucket.s3.us-east-1.amazonaws.com/campaigns/b.jpg", url)

	d, ok := files["campaigns/b.jpg"]
	assert.True(t, ok)
	assert.EqualValues(t, 5, len(d))
}

func TestS3_Delete(t *testing.T) {
	files := map[string][]byte{"campaigns/b.jpg": {1}}
	stor := newMockS3(files)

	assert.NoError(t, stor.Delete(testCtx, "campaigns/b.jpg"))
	_, ok := files["campaigns/b.jpg"]
	assert.False(t, ok)

	assert.Error(t, stor.Delete(testCtx, "campaigns/b.jpg"))
}

func TestObjectBaseURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/images", objectBaseURL(S3Config{Bucket: "images", EndpointURL: "http://minio:9000/"}))
	assert.Equal(t, "https://images.s3.eu-west-1.amazonaws.com", objectBaseURL(S3Config{Bucket: "images", Region: "eu-west-1"}))
}

type mockS3API struct {
	s3iface.S3API
	files map[string][]byte
}

func newMockS3(files map[string][]byte) *S3 {
	api := &mockS3API{files: files}
	return &S3{
		api:      api,
		uploader: s3manager.NewUploaderWithClient(api),
		bucket:   "mock-bucket",
		baseURL:  objectBaseURL(S3Config{Bucket: "mock-bucket", Region: "us-east-1"}),
		log:      zap.NewNop(),
	}
}

func (m *mockS3API) PutObjectRequest(input *s3.PutObjectInput) (*request.Request, *s3.PutObjectOutput) {
	content, _ := io.ReadAll(input.Body)
	req := request.New(aws.Config{}, metadata.ClientInfo{}, request.Handlers{}, nil, &request.Operation{}, nil, nil)
	m.files[*input.Key] = content
	return req, &s3.PutObjectOutput{}
}

func (m *mockS3API) DeleteObjectWithContext(_ aws.Context, input *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	if _, ok := m.files[*input.Key]; ok {
		delete(m.files, *input.Key)
		return &s3.DeleteObjectOutput{}, nil
	}
	return nil, awserr.New("NotFound", "", nil)
}
