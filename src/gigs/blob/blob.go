// Package blob resolves opaque blob keys (avatars) to public URLs.
package blob

import (
	"net/url"
	"strings"

	"github.com/gigboard/gigboard/src/gigs/failure"
)

// DefaultAvatar is served for profiles without an uploaded image.
const DefaultAvatar = "bp.jpeg"

// Resolver builds public object URLs of the form
// {base}/storage/v1/object/public/{bucket}/{key}.
type Resolver struct {
	base   string
	bucket string
}

func NewResolver(baseURL, bucket string) (*Resolver, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, failure.Wrap(failure.ErrValidation, "blob base url %q is not absolute", baseURL)
	}
	bucket = strings.Trim(bucket, "/ ")
	if bucket == "" {
		return nil, failure.Wrap(failure.ErrValidation, "blob bucket is required")
	}
	return &Resolver{base: strings.TrimRight(u.String(), "/"), bucket: bucket}, nil
}

// Resolve returns the URL for key. An empty key resolves to DefaultAvatar;
// keys are escaped per path segment so they cannot climb out of the bucket.
func (r *Resolver) Resolve(key string) string {
	key = strings.Trim(key, "/ ")
	if key == "" {
		key = DefaultAvatar
	}
	parts := strings.Split(key, "/")
	clean := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, url.PathEscape(p))
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultAvatar)
	}
	return r.base + "/storage/v1/object/public/" + url.PathEscape(r.bucket) + "/" + strings.Join(clean, "/")
}
