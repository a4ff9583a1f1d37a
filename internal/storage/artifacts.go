package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/timmy/ghostbooth/internal/domain"
)

// Artifact namespaces
const (
	NamespaceUploads = "uploads"
	NamespaceResults = "results"
)

// ArtifactStore addresses images by references of the form "/<namespace>/<name>".
type ArtifactStore struct {
	backend ObjectStorage
}

// NewArtifactStore wraps an ObjectStorage backend.
func NewArtifactStore(backend ObjectStorage) *ArtifactStore {
	return &ArtifactStore{backend: backend}
}

// Backend exposes the underlying object storage.
func (a *ArtifactStore) Backend() ObjectStorage {
	return a.backend
}

// Ref builds the reference for name inside namespace.
func Ref(namespace, name string) string {
	return "/" + namespace + "/" + name
}

// ParseRef splits a reference into namespace and file name. Absolute URLs are
// accepted and reduced to their path. Anything outside the two namespaces, or
// a name that is not a single path segment, is rejected.
func ParseRef(ref string) (namespace, name string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", domain.NewValidationError("image_url", "is required")
	}
	if u, perr := url.Parse(ref); perr == nil && u.Scheme != "" {
		ref = u.Path
	}
	ref = strings.TrimPrefix(ref, "/")

	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || (namespace != NamespaceUploads && namespace != NamespaceResults) {
		return "", "", domain.NewValidationError("image_url", "must reference /uploads or /results")
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.Clean(name) != name {
		return "", "", domain.NewValidationError("image_url", "invalid file name")
	}
	return namespace, name, nil
}

func refKey(ref string) (string, error) {
	ns, name, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return ns + "/" + name, nil
}

// Read loads the artifact bytes. Missing artifacts map to domain.ErrNotFound.
func (a *ArtifactStore) Read(ctx context.Context, ref string) ([]byte, error) {
	key, err := refKey(ref)
	if err != nil {
		return nil, err
	}
	rc, err := a.backend.Download(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, fmt.Errorf("artifact %s: %w", ref, domain.ErrNotFound)
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return data, nil
}

// Write stores data as namespace/name and returns its reference.
func (a *ArtifactStore) Write(ctx context.Context, namespace, name string, data []byte, contentType string) (string, error) {
	ref := Ref(namespace, name)
	key, err := refKey(ref)
	if err != nil {
		return "", err
	}
	if err := a.backend.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return ref, nil
}

// Exists reports whether ref resolves to a stored artifact.
func (a *ArtifactStore) Exists(ctx context.Context, ref string) (bool, error) {
	key, err := refKey(ref)
	if err != nil {
		return false, err
	}
	return a.backend.Exists(ctx, key)
}

// List returns the objects of a namespace with keys rewritten to references.
func (a *ArtifactStore) List(ctx context.Context, namespace string) ([]ObjectInfo, error) {
	objects, err := a.backend.List(ctx, namespace+"/")
	if err != nil {
		return nil, err
	}
	out := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if path.Dir(obj.Key) != namespace {
			continue
		}
		obj.Key = Ref(namespace, name)
		out = append(out, obj)
	}
	return out, nil
}
