package storagesvc

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/saifdine/daura/core"
)

// OSSStorage stores uploaded files in an Aliyun OSS bucket with public-read
// objects addressed as https://<bucket>.<endpoint>/<key>.
type OSSStorage struct {
	bucket   *oss.Bucket
	endpoint string
}

var _ core.FileStorage = (*OSSStorage)(nil)

func NewOSSStorage(conf *core.Config) (*OSSStorage, error) {
	client, err := oss.New(conf.OSS.Endpoint, conf.OSS.AccessKeyID, conf.OSS.AccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "creating oss client")
	}
	bucket, err := client.Bucket(conf.OSS.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening oss bucket")
	}
	return &OSSStorage{bucket: bucket, endpoint: conf.OSS.Endpoint}, nil
}

func (s *OSSStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	opts := []oss.Option{
		oss.ContentType(contentType),
		oss.ObjectACL(oss.ACLPublicRead),
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return "", errors.Wrap(err, "uploading object")
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket.BucketName, s.endpoint, key), nil
}

func (s *OSSStorage) Remove(ctx context.Context, key string) error {
	return errors.Wrap(s.bucket.DeleteObject(key), "deleting object")
}

// InMemStorage keeps uploads in a map; used by tests and the dev loop when no
// OSS credentials are set.
type InMemStorage struct {
	mutex   sync.RWMutex
	objects map[string][]byte
}

var _ core.FileStorage = (*InMemStorage)(nil)

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{objects: make(map[string][]byte)}
}

func (s *InMemStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	s.mutex.Lock()
	s.objects[key] = raw
	s.mutex.Unlock()
	return "mem://" + key, nil
}

func (s *InMemStorage) Remove(ctx context.Context, key string) error {
	s.mutex.Lock()
	delete(s.objects, key)
	s.mutex.Unlock()
	return nil
}

// Object returns a stored object's bytes; tests use it to assert uploads.
func (s *InMemStorage) Object(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	raw, ok := s.objects[key]
	return raw, ok
}
