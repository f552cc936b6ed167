// Package validation holds input checks shared by configuration and the CLI:
// layout file paths, listen hosts and websocket origin entries.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conneroisu/techviz/internal/errors"
)

// LayoutExtensions are the layout file formats techviz can read.
var LayoutExtensions = []string{".yml", ".yaml", ".toml"}

var (
	pathDangerousChars = []string{";", "&", "|", "$", "`", "<", ">"}
	hostDangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " ", "/"}
)

var restrictedPaths = []string{
	"/etc/",
	"/proc/",
	"/sys/",
	"/dev/",
	"/boot/",
}

// ValidatePath rejects empty paths, shell metacharacters and system
// directories.
func ValidatePath(path string) error {
	if path == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "path cannot be empty")
	}

	for _, char := range pathDangerousChars {
		if strings.Contains(path, char) {
			return errors.NewValidationError(errors.ErrCodeInvalidPath,
				fmt.Sprintf("path contains dangerous character: %s", char)).
				WithContext("path", path)
		}
	}

	cleanPath := strings.ToLower(filepath.Clean(path))
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(cleanPath, restricted) {
			return errors.NewSecurityError(errors.ErrCodeInvalidPath,
				fmt.Sprintf("access to restricted path denied: %s", path))
		}
	}

	return nil
}

// ValidateFileExtension checks filename against an allowlist of extensions.
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "file must have an extension").
			WithContext("path", filename)
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return errors.NewValidationError(errors.ErrCodeInvalidPath,
		fmt.Sprintf("file extension '%s' is not allowed", ext)).
		WithContext("path", filename).
		WithContext("allowed", strings.Join(allowedExtensions, ", "))
}

// ValidateLayoutPath checks a layout file path and its format.
func ValidateLayoutPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return ValidateFileExtension(path, LayoutExtensions)
}

// ValidateHost rejects listen hosts containing shell or URL syntax.
func ValidateHost(host string) error {
	for _, char := range hostDangerousChars {
		if strings.Contains(host, char) {
			return errors.NewValidationError(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("host contains invalid character: %q", char)).
				WithContext("host", host)
		}
	}
	return nil
}

// ValidateOriginEntry checks one allowed-origins entry. It must be "*" or a
// bare http(s) origin with no path, query or fragment.
func ValidateOriginEntry(origin string) error {
	if origin == "*" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidOrigin, "invalid origin format").
			WithContext("origin", origin).
			WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewValidationError(errors.ErrCodeInvalidOrigin,
			fmt.Sprintf("invalid origin scheme '%s': only http and https are allowed", u.Scheme)).
			WithContext("origin", origin)
	}
	if u.Host == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidOrigin, "origin must have a host").
			WithContext("origin", origin)
	}
	if strings.TrimSuffix(u.Path, "/") != "" || u.RawQuery != "" || u.Fragment != "" {
		return errors.NewValidationError(errors.ErrCodeInvalidOrigin, "origin must not have a path, query or fragment").
			WithContext("origin", origin)
	}
	return nil
}
