package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("not found")

// BlobStore guarda un blob JSON por key ("{prefix}/{documento}.json").
type BlobStore interface {
	// Get devuelve ErrNotFound si la key no existe.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	// DeleteExcept borra todo lo que cuelga de prefix salvo keep.
	DeleteExcept(ctx context.Context, prefix string, keep []string) (int64, error)
	Close() error
}

func ObjectKey(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name + ".json"
}

func dirPrefix(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/"
}
