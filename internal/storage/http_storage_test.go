package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func noBackoff(int) time.Duration { return time.Millisecond }

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	pngData := testPNG(t, 1, 1)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				if tt.responses[n] == http.StatusOK {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(tt.responses[n])
				w.Write([]byte(fmt.Sprintf("Error %d", tt.responses[n])))
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(5 * time.Second).WithBackoff(noBackoff)
			_, err := fetcher.FetchImage(context.Background(), server.URL)

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
					t.Errorf("Expected network error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %s", err.Error())
			}
		})
	}
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount int32
	pngData := testPNG(t, 2, 3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	var delays []time.Duration
	fetcher := NewHTTPImageFetcher(5 * time.Second).WithBackoff(func(attempt int) time.Duration {
		d := time.Duration(attempt+1) * time.Millisecond
		delays = append(delays, d)
		return d
	})

	img, err := fetcher.FetchImage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got error: %s", err.Error())
	}
	if atomic.LoadInt32(&requestCount) != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	if len(delays) != 2 || delays[0] >= delays[1] {
		t.Errorf("Expected two increasing backoff delays, got %v", delays)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Errorf("Expected 2x3 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestHTTPImageFetcher_UndecodableBody(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(5 * time.Second).WithBackoff(noBackoff)
	_, err := fetcher.FetchImage(context.Background(), server.URL)

	if !apperrors.IsType(err, apperrors.ErrorTypeEncoding) {
		t.Errorf("Expected encoding error, got %v", err)
	}
	if atomic.LoadInt32(&requestCount) != 1 {
		t.Errorf("Expected decode failures not to be retried, got %d requests", requestCount)
	}
}
