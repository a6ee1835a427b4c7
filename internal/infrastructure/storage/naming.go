package storage

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	domain "mediavault/internal/domain/media"
)

// ErrNameTaken is returned when a generated name already exists. Names are never overwritten.
var ErrNameTaken = errors.New("stored name already in use")

// TokenGenerator yields the unique part of a stored name.
type TokenGenerator interface {
	NewToken() string
}

var (
	storedNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}(\.[a-z0-9]{1,16})?$`)
	extensionPattern  = regexp.MustCompile(`^\.[a-z0-9]{1,16}$`)
)

// newStoredName builds "<token><ext>" where ext is the lower-cased extension
// of the client file name, dropped when it is not plain alphanumerics.
func newStoredName(gen TokenGenerator, originalName string) string {
	return strings.ToLower(gen.NewToken()) + extensionOf(originalName)
}

func extensionOf(originalName string) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := strings.ToLower(path.Ext(base))
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return ext
}

func validateStoredName(name string) error {
	if !storedNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStoredName, name)
	}
	return nil
}
