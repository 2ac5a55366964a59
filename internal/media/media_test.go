package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/civicwatch/internal/model"
)

var at = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		ct      string
		want    model.MediaType
		wantErr bool
	}{
		{ct: "image/jpeg", want: model.MediaPhoto},
		{ct: "image/png", want: model.MediaPhoto},
		{ct: "video/mp4", want: model.MediaVideo},
		{ct: "application/pdf", wantErr: true},
		{ct: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			got, err := TypeOf(tt.ct)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := ObjectKey("rpt_1", `C:\Users\me\photo 1.jpg`, at)
	assert.True(t, strings.HasPrefix(key, "reports/rpt_1/1741953600-"), key)
	assert.True(t, strings.HasSuffix(key, "-photo_1.jpg"), key)

	assert.NotEqual(t, ObjectKey("rpt_1", "a.jpg", at), ObjectKey("rpt_1", "a.jpg", at))
	assert.True(t, strings.HasSuffix(ObjectKey("rpt_1", "", at), "-upload"))
}

func TestS3Uploader_Upload(t *testing.T) {
	client := &mockS3{}
	u := newS3Uploader(client, S3Config{Endpoint: "http://minio:9000/", Bucket: "evidence"}, zerolog.Nop())
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "evidence" &&
			aws.ToString(in.Key) == "reports/rpt_1/x.jpg" &&
			aws.ToString(in.ContentType) == "image/jpeg" &&
			aws.ToInt64(in.ContentLength) == 3
	})).Return(&s3.PutObjectOutput{}, nil)

	url, err := u.Upload(ctx, "reports/rpt_1/x.jpg", "image/jpeg", bytes.NewReader([]byte("abc")), 3)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/evidence/reports/rpt_1/x.jpg", url)
	client.AssertExpectations(t)
}

func TestS3Uploader_PublicURL(t *testing.T) {
	u := newS3Uploader(&mockS3{}, S3Config{Bucket: "evidence", PublicURL: "https://cdn.example.org/"}, zerolog.Nop())
	assert.Equal(t, "https://cdn.example.org/k", u.URL("k"))
}

func TestS3Uploader_Error(t *testing.T) {
	client := &mockS3{}
	u := newS3Uploader(client, S3Config{Bucket: "evidence"}, zerolog.Nop())
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := u.Upload(context.Background(), "k", "image/png", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object k")
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	fail string
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	b, _ := io.ReadAll(body)
	if string(b) == f.fail {
		return "", errors.New("boom")
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn/" + string(b), nil
}

func file(name, ct, body string) File {
	return File{
		Name:        name,
		ContentType: ct,
		Size:        int64(len(body)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(body)), nil },
	}
}

func TestUploadAll_PreservesOrder(t *testing.T) {
	up := &fakeUploader{}
	files := []File{
		file("a.jpg", "image/jpeg", "a"),
		file("b.mp4", "video/mp4", "b"),
		file("c.png", "image/png", "c"),
	}

	urls, mt, err := UploadAll(context.Background(), up, "rpt_1", files, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn/a", "https://cdn/b", "https://cdn/c"}, urls)
	assert.Equal(t, model.MediaVideo, mt)
	assert.Len(t, up.keys, 3)
}

func TestUploadAll_PhotosOnly(t *testing.T) {
	_, mt, err := UploadAll(context.Background(), &fakeUploader{}, "rpt_1", []File{file("a.jpg", "image/jpeg", "a")}, at)
	require.NoError(t, err)
	assert.Equal(t, model.MediaPhoto, mt)
}

func TestUploadAll_RejectsBeforeUploading(t *testing.T) {
	up := &fakeUploader{}
	files := []File{file("a.jpg", "image/jpeg", "a"), file("notes.txt", "text/plain", "n")}

	_, _, err := UploadAll(context.Background(), up, "rpt_1", files, at)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, up.keys)
}

func TestUploadAll_UploadError(t *testing.T) {
	up := &fakeUploader{fail: "b"}
	files := []File{file("a.jpg", "image/jpeg", "a"), file("b.jpg", "image/jpeg", "b")}

	_, _, err := UploadAll(context.Background(), up, "rpt_1", files, at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload b.jpg")
}

func TestUploadAll_Empty(t *testing.T) {
	urls, mt, err := UploadAll(context.Background(), &fakeUploader{}, "rpt_1", nil, at)
	require.NoError(t, err)
	assert.Nil(t, urls)
	assert.Empty(t, mt)
}
