package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/config"
	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// pngHeader is enough for mimetype to detect image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestStorage(api ObjectAPI, maxBytes int64) *CoverStorage {
	s := NewCoverStorageWithClient(api, config.StorageConfig{
		Bucket:         "covers",
		PublicBaseURL:  "https://cdn.example.com/",
		MaxUploadBytes: maxBytes,
	})
	s.now = func() time.Time { return time.Unix(1741564800, 0) }
	return s
}

func TestCoverStorage_Upload(t *testing.T) {
	api := new(mockObjectAPI)
	s := newTestStorage(api, 0)

	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		body, ok := in.Body.(*bytes.Reader)
		return ok && body.Len() == len(pngHeader) && *in.Bucket == "covers" &&
			*in.Key == "trip-covers/user-1/trip-1/1741564800_goa_beach.png" &&
			*in.ContentType == "image/png" &&
			*in.ContentLength == int64(len(pngHeader))
	})).Return(&s3.PutObjectOutput{}, nil)

	up, err := s.Upload(context.Background(), "user-1", "trip-1", "../goa beach.jpeg", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/trip-covers/user-1/trip-1/1741564800_goa_beach.png", up.URL)
	assert.Equal(t, "image/png", up.ContentType)
	api.AssertExpectations(t)

	key, ok := s.KeyFromURL(up.URL)
	assert.True(t, ok)
	assert.Equal(t, up.Key, key)
}

func TestCoverStorage_UploadRejects(t *testing.T) {
	api := new(mockObjectAPI)
	s := newTestStorage(api, 32)

	_, err := s.Upload(context.Background(), "u", "t", "notes.txt", strings.NewReader("just some text"))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_mime_type", appErr.Message)

	_, err = s.Upload(context.Background(), "u", "t", "big.png", bytes.NewReader(append(pngHeader, make([]byte, 64)...)))
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "file_too_large", appErr.Message)

	_, err = s.Upload(context.Background(), "u", "t", "empty.png", bytes.NewReader(nil))
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "empty_file", appErr.Message)

	api.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestCoverStorage_UploadBackendError(t *testing.T) {
	api := new(mockObjectAPI)
	s := newTestStorage(api, 0)
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	_, err := s.Upload(context.Background(), "u", "t", "a.png", bytes.NewReader(pngHeader))
	assert.ErrorContains(t, err, "503")
}

func TestCoverStorage_Delete(t *testing.T) {
	api := new(mockObjectAPI)
	s := newTestStorage(api, 0)
	api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == "trip-covers/u/t/1_a.png"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	require.NoError(t, s.Delete(context.Background(), "trip-covers/u/t/1_a.png"))
	assert.Error(t, s.Delete(context.Background(), "trip-covers/../secrets"))
	api.AssertExpectations(t)
}

func TestKeyFromURL_Foreign(t *testing.T) {
	s := newTestStorage(new(mockObjectAPI), 0)
	_, ok := s.KeyFromURL("https://images.pexels.com/photos/1.jpeg")
	assert.False(t, ok)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_photo_1_.png", SanitizeFilename("my photo(1).png"))
	assert.Equal(t, "upload", SanitizeFilename(".."))
	assert.Len(t, SanitizeFilename(strings.Repeat("a", 300)+".png"), 128)
}
