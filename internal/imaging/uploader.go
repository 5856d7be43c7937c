package imaging

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/dukerupert/tandem/internal/client"
)

const Bucket = "item-images"

// Objects is the slice of the storage API the uploader needs.
type Objects interface {
	Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]client.Object, error)
	Remove(ctx context.Context, bucket string, keys []string) error
	PublicURL(bucket, key string) string
}

type Uploader struct {
	objects Objects
	now     func() time.Time
}

func NewUploader(objects Objects) *Uploader {
	return &Uploader{objects: objects, now: time.Now}
}

// Upload compresses the image read from r and stores it under a fresh key
// beneath the item's prefix. It returns the public URL of the stored object.
func (u *Uploader) Upload(ctx context.Context, itemID string, r io.Reader) (string, error) {
	data, err := Compress(r)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%d.jpg", itemID, u.now().UnixMilli())
	if _, err := u.objects.Upload(ctx, Bucket, key, "image/jpeg", data); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return u.objects.PublicURL(Bucket, key), nil
}

// KeyFromURL extracts the object key from a public image URL.
func KeyFromURL(imageURL string) (string, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	_, key, ok := strings.Cut(parsed.Path, "/"+Bucket+"/")
	if !ok || key == "" {
		return "", fmt.Errorf("invalid image url %q", imageURL)
	}
	return key, nil
}

// Delete removes the object referenced by imageURL.
func (u *Uploader) Delete(ctx context.Context, imageURL string) error {
	key, err := KeyFromURL(imageURL)
	if err != nil {
		return err
	}
	if err := u.objects.Remove(ctx, Bucket, []string{key}); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// DeleteAll removes every object stored under the item's prefix.
func (u *Uploader) DeleteAll(ctx context.Context, itemID string) error {
	objs, err := u.objects.ListObjects(ctx, Bucket, itemID+"/")
	if err != nil {
		return fmt.Errorf("list item images: %w", err)
	}
	if len(objs) == 0 {
		return nil
	}
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = itemID + "/" + o.Name
	}
	if err := u.objects.Remove(ctx, Bucket, keys); err != nil {
		return fmt.Errorf("delete item images: %w", err)
	}
	return nil
}
