package drive

import (
	"context"
	"strings"
)

// Resolver maps a human-readable slash-separated folder path to a Drive
// folder ID by walking one segment at a time from a root ID.
type Resolver struct {
	lister Lister
}

// NewResolver creates a Resolver on top of a listing capability.
func NewResolver(lister Lister) *Resolver {
	return &Resolver{lister: lister}
}

// Resolve walks path from rootID and returns the final folder ID. A missing
// segment resolves to "", nil: absence, not an error; the caller decides
// whether that is fatal. Drive permits duplicate names at the same level;
// the first match encountered is used.
func (r *Resolver) Resolve(ctx context.Context, path, rootID string) (string, error) {
	current := rootID
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		entries, err := r.lister.ListChildren(ctx, current)
		if err != nil {
			return "", err
		}

		next := ""
		for _, e := range entries {
			if e.Name == segment && e.IsFolder() {
				next = e.ID
				break
			}
		}
		if next == "" {
			return "", nil
		}
		current = next
	}
	return current, nil
}
