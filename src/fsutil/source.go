package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrUnsupportedScheme = errors.New("unsupported input scheme")

// Source opens evaluation inputs by location
type Source interface {
	// Open returns a reader for the location. Callers close it.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// LocalSource reads inputs from the local filesystem
type LocalSource struct{}

func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

func (s *LocalSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	path := strings.TrimPrefix(location, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// Router dispatches locations of the form scheme://rest to the Source
// registered for scheme. Locations without a scheme go to the fallback.
type Router struct {
	fallback Source
	schemes  map[string]Source
}

func NewRouter(fallback Source) *Router {
	return &Router{
		fallback: fallback,
		schemes:  make(map[string]Source),
	}
}

// Register adds a source for a scheme such as "s3".
func (r *Router) Register(scheme string, src Source) {
	r.schemes[strings.ToLower(scheme)] = src
}

func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, _, ok := strings.Cut(location, "://")
	if !ok {
		return r.fallback.Open(ctx, location)
	}

	scheme = strings.ToLower(scheme)
	if scheme == "file" {
		return r.fallback.Open(ctx, location)
	}
	src, ok := r.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	return src.Open(ctx, location)
}
