package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/getup/bannersync/internal/banner"
)

// BannersHandler serves the public carousel listing.
type BannersHandler struct {
	service *banner.Service
	limiter *RateLimiter
}

// NewBannersHandler creates a BannersHandler.
func NewBannersHandler(service *banner.Service, limiter *RateLimiter) *BannersHandler {
	return &BannersHandler{service: service, limiter: limiter}
}

// folderPathParam extracts folderPath from the query string, a form-encoded
// body, or a JSON body. The storefront posts form-encoded, but the
// parameter shape is the contract, not the encoding.
func folderPathParam(req events.APIGatewayProxyRequest) string {
	if v := req.QueryStringParameters["folderPath"]; v != "" {
		return v
	}
	if strings.Contains(req.Body, "folderPath=") {
		if values, err := url.ParseQuery(req.Body); err == nil {
			if v := values.Get("folderPath"); v != "" {
				return v
			}
		}
	}
	var body struct {
		FolderPath string `json:"folderPath"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err == nil {
		return body.FolderPath
	}
	return ""
}

// List returns the ordered banner entries for a folder. This endpoint is
// public, so it is rate limited per source IP.
func (h *BannersHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !h.limiter.Allow(req.RequestContext.Identity.SourceIP) {
		return jsonFailure(http.StatusTooManyRequests, "Too many requests"), nil
	}

	folderPath := folderPathParam(req)
	if folderPath == "" {
		return jsonFailure(http.StatusBadRequest, "Folder path not provided."), nil
	}

	banners, err := h.service.List(ctx, folderPath)
	if err != nil {
		return jsonFailure(http.StatusInternalServerError, "Failed to read banner folder."), nil
	}
	if len(banners) == 0 {
		return jsonFailure(http.StatusNotFound, "No images found."), nil
	}
	return jsonSuccess(banners), nil
}
