// Package drive wraps the Google Drive API for the two capabilities the
// sync needs: listing a folder's children and fetching file content.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FolderMIMEType is the Drive MIME type denoting a folder.
const FolderMIMEType = "application/vnd.google-apps.folder"

// Entry is one remote file or folder. Transient, fetched per listing call.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MIMEType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// IsFolder reports whether the entry is a Drive folder.
func (e Entry) IsFolder() bool {
	return e.MIMEType == FolderMIMEType
}

// IsImage reports whether the entry's MIME type indicates an image.
func (e Entry) IsImage() bool {
	return strings.HasPrefix(e.MIMEType, "image/")
}

// Lister lists the immediate children of a folder.
type Lister interface {
	ListChildren(ctx context.Context, parentID string) ([]Entry, error)
}

// Downloader fetches a file's raw content by ID.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Client implements Lister and Downloader against the Drive v3 API.
type Client struct {
	service *gdrive.Service
}

// NewClient creates a Client. httpClient must be an authenticated client for
// the connected account (see auth.Flow.Client).
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	srv, err := gdrive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %v", err)
	}
	return &Client{service: srv}, nil
}

// ListChildren lists the immediate, non-trashed children of a folder.
func (c *Client) ListChildren(ctx context.Context, parentID string) ([]Entry, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", parentID)
	fields := "nextPageToken, files(id, name, mimeType, webViewLink)"

	entries := []Entry{}
	pageToken := ""
	for {
		call := c.service.Files.List().
			Q(q).
			Fields(googleapi.Field(fields)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		r, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to list children of %s: %v", parentID, err)
		}
		for _, f := range r.Files {
			entries = append(entries, Entry{
				ID:          f.Id,
				Name:        f.Name,
				MIMEType:    f.MimeType,
				WebViewLink: f.WebViewLink,
			})
		}
		if r.NextPageToken == "" {
			return entries, nil
		}
		pageToken = r.NextPageToken
	}
}

// Download fetches a file's content.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download file %s: %v", fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read file content: %v", err)
	}
	return content, nil
}
