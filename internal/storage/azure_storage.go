package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

type azureStorage struct {
	client *azblob.Client
}

// NewAzureStorage creates a blob backed ImageSource using a shared key credential
func NewAzureStorage(accountName string, accountKey string) (ImageSource, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &azureStorage{client: client}, nil
}

// FetchImage downloads a blob addressed as https://<account>.blob.core.windows.net/<container>/<blob>
func (s *azureStorage) FetchImage(ctx context.Context, blobURL string) (image.Image, error) {
	containerName, blobName, err := ParseBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("blob download failed", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	img, _, err := DecodeImage(retryReader)
	return img, err
}

// ParseBlobURL splits a blob URL into container and blob names.
// The blob name may also be given as a ?blob= query parameter.
func ParseBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob URL", err)
	}

	path := strings.TrimPrefix(parsedURL.Path, "/")
	containerName, blobName, _ := strings.Cut(path, "/")
	if q := parsedURL.Query().Get("blob"); q != "" {
		blobName = q
	}
	if containerName == "" || blobName == "" {
		return "", "", apperrors.NewValidationError("blob URL must name a container and a blob", nil)
	}
	return containerName, blobName, nil
}
