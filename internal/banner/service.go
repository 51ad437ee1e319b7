package banner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/getup/bannersync/internal/model"
	"github.com/getup/bannersync/internal/taxonomy"
)

// Service builds the carousel listing from the mirrored files on disk.
type Service struct {
	uploadsDir string
	uploadsURL string
	resolver   taxonomy.PathResolver
}

// NewService creates a Service. uploadsDir is the local root the folderPath
// parameter is resolved under; uploadsURL is its public URL prefix.
func NewService(uploadsDir, uploadsURL string, resolver taxonomy.PathResolver) *Service {
	return &Service{
		uploadsDir: uploadsDir,
		uploadsURL: uploadsURL,
		resolver:   resolver,
	}
}

// List scans folderPath under the uploads root and returns one Banner per
// image file whose name encodes a category, in directory order. Files with
// names that don't parse are not eligible for attribution and are skipped.
// A missing directory yields an empty list, not an error.
func (s *Service) List(ctx context.Context, folderPath string) ([]model.Banner, error) {
	// Clean against traversal before joining under the uploads root.
	rel := path.Clean("/" + folderPath)
	dir := filepath.Join(s.uploadsDir, filepath.FromSlash(rel))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read banner folder: %w", err)
	}

	banners := []model.Banner{}
	for _, f := range entries {
		if f.IsDir() || !IsImageFile(f.Name()) {
			continue
		}
		categoryID, ok := ParseName(f.Name())
		if !ok {
			continue
		}

		categoryPath, err := s.resolver.FullPath(ctx, categoryID)
		if err != nil {
			return nil, err
		}

		banners = append(banners, model.Banner{
			URL:          s.uploadsURL + path.Join(rel, f.Name()),
			CategoryPath: categoryPath,
		})
	}
	return banners, nil
}
