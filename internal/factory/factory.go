package factory

import (
	"fmt"
	"time"

	"github.com/anime-shed/webcritic-go/internal/storage"
)

// StorageType represents different types of screenshot sources
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StorageFactory creates screenshot sources
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageSource, error)
}

// StorageOptions carries the settings sources are built from
type StorageOptions struct {
	FetchTimeout        time.Duration
	AzureStorageAccount string
	AzureStorageKey     string
}

// storageFactory implements StorageFactory
type storageFactory struct {
	opts StorageOptions
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(opts StorageOptions) StorageFactory {
	return &storageFactory{opts: opts}
}

// CreateStorage creates a source based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageSource, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.opts.FetchTimeout), nil
	case AzureStorage:
		if f.opts.AzureStorageAccount == "" || f.opts.AzureStorageKey == "" {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.opts.AzureStorageAccount, f.opts.AzureStorageKey)
	case LocalStorage:
		return storage.NewFileImageSource(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// Sources is the set of sources available to the running process, keyed by type.
// A type missing from the map is not configured.
type Sources map[StorageType]storage.ImageSource

// BuildSources creates every source the options allow, skipping unconfigured ones
func BuildSources(f StorageFactory, types ...StorageType) (Sources, error) {
	out := make(Sources, len(types))
	for _, t := range types {
		src, err := f.CreateStorage(t)
		if err != nil {
			if t == AzureStorage {
				continue
			}
			return nil, fmt.Errorf("create %s source: %w", t, err)
		}
		out[t] = src
	}
	return out, nil
}
