package client

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
)

type Object struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Upload stores body under key in bucket. Existing keys are never overwritten;
// the server answers with a conflict instead.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, body []byte) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+url.PathEscape(bucket)+"/"+escapeKey(key), true, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	var out struct {
		Key string `json:"key"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

// ListObjects lists the objects under prefix. Names are relative to prefix.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	q := url.Values{"prefix": {prefix}}
	var objs []Object
	if err := c.do(ctx, http.MethodGet, "/storage/v1/object/list/"+url.PathEscape(bucket)+"?"+q.Encode(), true, nil, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

func (c *Client) Remove(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/storage/v1/object/"+url.PathEscape(bucket), true, map[string][]string{"prefixes": keys}, nil)
}

// PublicURL is the unauthenticated address of an object.
func (c *Client) PublicURL(bucket, key string) string {
	return c.baseURL + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}
