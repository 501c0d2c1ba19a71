package blobsvc

import (
	"context"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/academia/core"
)

// GCSStore keeps blobs in a Google Cloud Storage bucket. Locations are object names.
// Buckets have no directories, so there is no container to clean up.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

var _ core.BlobStore = (*GCSStore)(nil)

// NewGCSStore uses the application default credentials unless credentialsFile is set.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Save(ctx context.Context, owner, filename string, r io.Reader) (string, error) {
	name := path.Join(owner, blobName(filename))
	w := s.bucket.Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return name, nil
}

func (s *GCSStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	rc, err := s.bucket.Object(location).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, core.ErrBlobNotFound
		}
		return nil, errors.Wrap(err, "opening object")
	}
	return rc, nil
}

func (s *GCSStore) Delete(ctx context.Context, location string) error {
	err := s.bucket.Object(location).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}
