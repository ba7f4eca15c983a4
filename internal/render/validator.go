package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pdf2md/internal/domain"
)

// ValidateDocumentPath checks that path exists and looks like a PDF.
func ValidateDocumentPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ConfigError("document path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NotFoundError(fmt.Sprintf("document does not exist: %s", path), err)
		}
		return domain.NotFoundError(fmt.Sprintf("cannot access document: %s", path), err)
	}

	if info.IsDir() {
		return domain.ConfigError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return domain.ConfigError(fmt.Sprintf("file is not a PDF (has extension %q)", ext), nil)
	}

	return nil
}

// ValidateImagePath checks that path exists and is a regular file.
func ValidateImagePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ConfigError("image path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NotFoundError(fmt.Sprintf("image does not exist: %s", path), err)
		}
		return domain.NotFoundError(fmt.Sprintf("cannot access image: %s", path), err)
	}

	if info.IsDir() {
		return domain.ConfigError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	return nil
}
