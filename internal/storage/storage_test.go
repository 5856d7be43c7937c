package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/tandem/internal/model"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu       sync.Mutex
	objects  map[string][]byte
	ctypes   map[string]string
	pageSize int
	putErr   error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), ctypes: make(map[string]string), pageSize: 1000}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	m.ctypes[*input.Key] = aws.ToString(input.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:        io.NopCloser(strings.NewReader(string(data))),
		ContentType: aws.String(m.ctypes[*input.Key]),
	}, nil
}

func (m *mockS3Client) HeadObject(_ context.Context, input *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[*input.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, aws.ToString(input.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if input.ContinuationToken != nil {
		fmt.Sscanf(*input.ContinuationToken, "%d", &start)
	}
	end := min(start+m.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(m.objects[k])))})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (m *mockS3Client) DeleteObjects(_ context.Context, input *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range input.Delete.Objects {
		delete(m.objects, *id.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func newTestStore() (*Store, *mockS3Client) {
	mock := newMockS3()
	return &Store{client: mock, bucket: "tandem"}, mock
}

func TestStoreDisabled(t *testing.T) {
	s := New(S3Config{})
	if s.Enabled() {
		t.Fatal("store without bucket should be disabled")
	}
	ctx := context.Background()
	if err := s.Put(ctx, ItemImages, "a/b.jpg", "image/jpeg", strings.NewReader("x"), 1); !errors.Is(err, ErrDisabled) {
		t.Errorf("Put: expected ErrDisabled, got %v", err)
	}
	if _, err := s.List(ctx, ItemImages, "a/"); !errors.Is(err, ErrDisabled) {
		t.Errorf("List: expected ErrDisabled, got %v", err)
	}
	if err := s.Remove(ctx, ItemImages, []string{"a/b.jpg"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Remove: expected ErrDisabled, got %v", err)
	}
}

func TestStorePutGet(t *testing.T) {
	s, mock := newTestStore()
	ctx := context.Background()

	if err := s.Put(ctx, ItemImages, "item-1/100.jpg", "image/jpeg", strings.NewReader("jpeg"), 4); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := mock.objects["item-images/item-1/100.jpg"]; !ok {
		t.Fatalf("expected object under bucket prefix, have %v", mock.objects)
	}

	body, ct, err := s.Get(ctx, ItemImages, "item-1/100.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "jpeg" {
		t.Errorf("body = %q, want jpeg", data)
	}
	if ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
}

func TestStorePutNoUpsert(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if err := s.Put(ctx, ItemImages, "item-1/100.jpg", "image/jpeg", strings.NewReader("one"), 3); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := s.Put(ctx, ItemImages, "item-1/100.jpg", "image/jpeg", strings.NewReader("two"), 3)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s, _ := newTestStore()
	_, _, err := s.Get(context.Background(), ItemImages, "nope.jpg")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListAndRemove(t *testing.T) {
	s, mock := newTestStore()
	mock.pageSize = 2
	ctx := context.Background()

	for _, k := range []string{"item-1/1.jpg", "item-1/2.jpg", "item-1/3.jpg", "item-2/1.jpg"} {
		if err := s.Put(ctx, ItemImages, k, "image/jpeg", strings.NewReader("x"), 1); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}

	objs, err := s.List(ctx, ItemImages, "item-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("expected 3 objects across pages, got %d", len(objs))
	}
	if objs[0].Name != "1.jpg" {
		t.Errorf("name = %q, want relative name 1.jpg", objs[0].Name)
	}

	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = "item-1/" + o.Name
	}
	if err := s.Remove(ctx, ItemImages, keys); err != nil {
		t.Fatalf("remove: %v", err)
	}

	left, _ := s.List(ctx, ItemImages, "")
	if len(left) != 1 || left[0].Name != "item-2/1.jpg" {
		t.Errorf("remaining = %+v", left)
	}
}

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"item/1.jpg", "item/1.jpg", false},
		{"item//1.jpg", "item/1.jpg", false},
		{"", "", true},
		{"/abs.jpg", "", true},
		{"../escape.jpg", "", true},
		{"item/../../escape.jpg", "", true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("CleanKey(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("CleanKey(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}
