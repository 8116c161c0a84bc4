package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_StoreOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Store(ctx, DirHandover, "photo.JPG", []byte("image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "handover/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	rc, err := store.Open(key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, store.Delete(ctx, key))
	assert.NoError(t, store.Delete(ctx, key), "deleting twice is not an error")

	_, err = store.Open(key)
	assert.Error(t, err)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open("../../etc/passwd")
	assert.Error(t, err)
}

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3Storage_Store(t *testing.T) {
	client := new(mockObjectAPI)
	store := newS3Storage(client, "proofs", "rentals")
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "proofs" && strings.HasPrefix(*in.Key, "rentals/payments/") && *in.ContentType == "image/png"
	})).Return(nil).Once()

	key, err := store.Store(ctx, DirPayments, "receipt.png", []byte("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"))

	client.On("PutObject", ctx, mock.Anything).Return(errors.New("network")).Once()
	_, err = store.Store(ctx, DirPayments, "receipt.png", []byte("png"))
	assert.Error(t, err)

	client.AssertExpectations(t)
}

func TestS3Storage_Delete(t *testing.T) {
	client := new(mockObjectAPI)
	store := newS3Storage(client, "proofs", "")
	ctx := context.Background()

	client.On("DeleteObject", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == "payments/a.png"
	})).Return(nil)

	assert.NoError(t, store.Delete(ctx, "payments/a.png"))
	client.AssertExpectations(t)
}
