// Package banner handles the mirrored banner files: which filenames count
// as images, which encode a category attribution, and the listing served to
// the storefront carousel.
package banner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// imageExtensions is the fixed set of extensions the sync and the listing
// consider. Matching is case-insensitive.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImageFile reports whether the filename carries a recognized image
// extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// namePattern is {category_id}_{image_number}_{YYYYMMDD} without extension.
var namePattern = regexp.MustCompile(`^\d+_\d+_\d{8}$`)

// ValidName reports whether the extension-stripped filename encodes a
// category attribution. The sync diff itself does not consult this; only
// the carousel listing does.
func ValidName(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return namePattern.MatchString(base)
}

// ParseName extracts the category ID from a valid banner filename. ok is
// false when the name does not match the expected pattern.
func ParseName(name string) (categoryID int, ok bool) {
	if !ValidName(name) {
		return 0, false
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	return id, true
}
