package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
)

const azureBlobHostSuffix = ".blob.core.windows.net"

// URLValidator checks remote screenshot locations before they are fetched
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator allowing http and https on any host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{},
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates a screenshot URL
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	_, err := v.parse(imageURL)
	return err
}

// ValidateBlobURL validates an Azure blob URL for the configured storage account
func (v *URLValidator) ValidateBlobURL(blobURL, account string) error {
	parsedURL, err := v.parse(blobURL)
	if err != nil {
		return err
	}
	if parsedURL.Scheme != "https" {
		return apperrors.NewValidationError("Blob URL must use https", nil)
	}
	host := strings.ToLower(parsedURL.Hostname())
	if !strings.HasSuffix(host, azureBlobHostSuffix) {
		return apperrors.NewValidationError("URL is not an Azure blob URL", nil)
	}
	if account != "" && host != strings.ToLower(account)+azureBlobHostSuffix {
		return apperrors.NewValidationError("Blob URL belongs to a different storage account", nil)
	}
	return nil
}

func (v *URLValidator) parse(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Host) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	return parsedURL, nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
