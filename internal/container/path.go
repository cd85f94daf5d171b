package container

import (
	"fmt"
	"strings"

	"github.com/konorlevich/sfms/internal/database"
)

const separator = string(database.DirectorySeparator)

// ValidateAbsolutePath fails with ErrInvalidAbsolutePath unless path starts with the separator.
func ValidateAbsolutePath(path string) error {
	if !strings.HasPrefix(path, separator) {
		return fmt.Errorf("%w: %q", ErrInvalidAbsolutePath, path)
	}
	return nil
}

// ValidateFileName fails with ErrInvalidFileName when path ends with the separator.
func ValidateFileName(path string) error {
	if strings.HasSuffix(path, separator) {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, path)
	}
	return nil
}

func validateFilePath(path string) error {
	if err := ValidateAbsolutePath(path); err != nil {
		return err
	}
	return ValidateFileName(path)
}

// DirPrefix makes dirPath end with exactly one separator,
// so "/aa/bb" matches "/aa/bb/x" but not "/aa/bbx".
func DirPrefix(dirPath string) string {
	return strings.TrimRight(dirPath, separator) + separator
}
