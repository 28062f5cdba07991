package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/sirupsen/logrus"
)

const maxFetchAttempts = 3

// ImageSource resolves a location into a decoded screenshot
type ImageSource interface {
	FetchImage(ctx context.Context, location string) (image.Image, error)
}

// HTTPImageFetcher downloads screenshots over HTTP with retry on transient errors
type HTTPImageFetcher struct {
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher bounded by timeout per attempt
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// WithBackoff replaces the delay between attempts
func (h *HTTPImageFetcher) WithBackoff(backoff func(attempt int) time.Duration) *HTTPImageFetcher {
	h.backoff = backoff
	return h
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	var lastErr error

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		img, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			logger.WithFields(logrus.Fields{
				"url":     imageURL,
				"attempt": attempt + 1,
				"size":    describeBounds(img),
			}).Debug("Fetched remote screenshot")
			return img, nil
		}
		lastErr = err
		if !retry {
			return nil, err
		}

		if attempt < maxFetchAttempts-1 {
			logger.WithFields(logrus.Fields{
				"url":     imageURL,
				"attempt": attempt + 1,
				"error":   err.Error(),
			}).Warn("Retrying screenshot fetch")

			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeoutError("screenshot fetch cancelled", ctx.Err())
			case <-time.After(h.backoff(attempt)):
			}
		}
	}

	return nil, apperrors.NewNetworkError(
		fmt.Sprintf("failed to fetch image after %d attempts", maxFetchAttempts), lastErr)
}

// fetchOnce performs a single attempt and reports whether a failure is worth retrying
func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (image.Image, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, apperrors.NewValidationError("invalid URL", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/gif, */*")
	req.Header.Set("User-Agent", "webcritic/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// Network errors are retryable unless the caller gave up
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, apperrors.NewNetworkError(
			fmt.Sprintf("client error: status code %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, false, apperrors.NewNetworkError(
			fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	img, _, err := DecodeImage(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return img, false, nil
}
