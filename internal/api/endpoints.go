package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/uamcli/uamcli/internal/asset"
)

// Wire shapes for the asset endpoints. Field names match the service's
// JSON contract; the methods map them onto the domain model.

type assetCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PrimaryType string `json:"primaryType"`
}

type assetCreateResponse struct {
	AssetID      string          `json:"assetId"`
	AssetVersion string          `json:"assetVersion"`
	Datasets     []asset.Dataset `json:"datasets"`
}

type assetUpdateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PrimaryType string            `json:"primaryType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type assetResponse struct {
	AssetID         string            `json:"assetId"`
	AssetVersion    string            `json:"assetVersion"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Tags            []string          `json:"tags"`
	SystemTags      []string          `json:"systemTags"`
	Labels          []string          `json:"labels"`
	PrimaryType     string            `json:"primaryType"`
	Status          string            `json:"status"`
	Frozen          bool              `json:"isFrozen"`
	SourceProjectID string            `json:"sourceProjectId"`
	ProjectIDs      []string          `json:"projectIds"`
	Datasets        []asset.Dataset   `json:"datasets"`
	Metadata        map[string]string `json:"metadata"`
}

func (r assetResponse) toDomain() (asset.Asset, error) {
	status, err := asset.ParseStatus(r.Status)
	if err != nil {
		return asset.Asset{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return asset.Asset{
		Identity:        asset.Identity{ID: r.AssetID, Version: r.AssetVersion},
		Name:            r.Name,
		Description:     r.Description,
		Tags:            r.Tags,
		SystemTags:      r.SystemTags,
		Labels:          r.Labels,
		PrimaryType:     r.PrimaryType,
		Status:          status,
		Frozen:          r.Frozen,
		SourceProjectID: r.SourceProjectID,
		ProjectIDs:      r.ProjectIDs,
		Datasets:        r.Datasets,
		Metadata:        r.Metadata,
	}, nil
}

type assetSearchRequest struct {
	ProjectIDs []string          `json:"projectIds"`
	Pagination paginationRequest `json:"pagination"`
}

type paginationRequest struct {
	SortingField string `json:"sortingField"`
}

type assetSearchResponse struct {
	Next   string          `json:"next"`
	Assets []assetResponse `json:"assets"`
}

type fileCreateRequest struct {
	FilePath    string `json:"filePath"`
	Description string `json:"description,omitempty"`
	FileSize    int64  `json:"fileSize"`
}

type fileCreateResponse struct {
	UploadURL string `json:"uploadUrl"`
}

type metadataDeleteRequest struct {
	Keys []string `json:"keys"`
}

type fieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FileDownload pairs a remote file path with its signed download URL.
type FileDownload struct {
	Path string `json:"filePath"`
	URL  string `json:"url"`
}

type downloadURLsResponse struct {
	Files []FileDownload `json:"files"`
}

func (c *Client) assetPath(parts ...string) string {
	p := "/assets/v1/projects/" + c.project + "/assets"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) versionPath(id asset.Identity, parts ...string) string {
	return c.assetPath(append([]string{id.ID, "versions", id.Version}, parts...)...)
}

// CreateAsset creates the container asset and returns its identity plus
// the datasets the service provisioned for it.
func (c *Client) CreateAsset(ctx context.Context, name, description, primaryType string) (asset.Identity, []asset.Dataset, error) {
	req := assetCreateRequest{Name: name, Description: description, PrimaryType: primaryType}
	var resp assetCreateResponse
	if err := c.do(ctx, http.MethodPost, c.assetPath(), nil, req, &resp); err != nil {
		return asset.Identity{}, nil, err
	}
	return asset.Identity{ID: resp.AssetID, Version: resp.AssetVersion}, resp.Datasets, nil
}

// GetAsset fetches the full record for one asset version.
func (c *Client) GetAsset(ctx context.Context, id asset.Identity) (asset.Asset, error) {
	query := url.Values{"IncludeFields": {"*"}}
	var resp assetResponse
	if err := c.do(ctx, http.MethodGet, c.versionPath(id), query, nil, &resp); err != nil {
		return asset.Asset{}, err
	}
	return resp.toDomain()
}

// SearchAssets returns all assets in the configured project.
func (c *Client) SearchAssets(ctx context.Context) ([]asset.Asset, error) {
	req := assetSearchRequest{
		ProjectIDs: []string{c.project},
		Pagination: paginationRequest{SortingField: "name"},
	}
	query := url.Values{"includeFields": {"*"}}
	var resp assetSearchResponse
	if err := c.do(ctx, http.MethodPost, c.assetPath("search"), query, req, &resp); err != nil {
		return nil, err
	}
	assets := make([]asset.Asset, 0, len(resp.Assets))
	for _, raw := range resp.Assets {
		a, err := raw.toDomain()
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// SetAssetStatus applies one single-step status transition. The target
// status travels as a lowercase path segment.
func (c *Client) SetAssetStatus(ctx context.Context, id asset.Identity, status asset.Status) error {
	return c.do(ctx, http.MethodPatch, c.versionPath(id, "status", status.PathSegment()), nil, nil, nil)
}

// UpdateAsset patches the mutable asset fields, carrying the full
// metadata mapping in one request.
func (c *Client) UpdateAsset(ctx context.Context, a asset.Asset) error {
	req := assetUpdateRequest{
		Name:        a.Name,
		Description: a.Description,
		PrimaryType: a.PrimaryType,
		Metadata:    a.Metadata,
	}
	return c.do(ctx, http.MethodPatch, c.versionPath(a.Identity), nil, req, nil)
}

// SetDatasetType updates a dataset's primary type.
func (c *Client) SetDatasetType(ctx context.Context, id asset.Identity, dataset asset.Dataset, primaryType string) error {
	req := asset.Dataset{ID: dataset.ID, Name: dataset.Name, PrimaryType: primaryType}
	return c.do(ctx, http.MethodPatch, c.versionPath(id, "datasets", dataset.ID), nil, req, nil)
}

// CreateFileRecord registers a file in a dataset and returns the signed
// URL the content must be uploaded to.
func (c *Client) CreateFileRecord(ctx context.Context, id asset.Identity, datasetID, fileName string, size int64) (string, error) {
	req := fileCreateRequest{FilePath: fileName, FileSize: size}
	var resp fileCreateResponse
	err := c.do(ctx, http.MethodPost, c.versionPath(id, "datasets", datasetID, "files"), nil, req, &resp)
	if err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", &Error{
			Method: http.MethodPost,
			Path:   c.versionPath(id, "datasets", datasetID, "files"),
			Err:    fmt.Errorf("%w: missing uploadUrl", ErrMalformed),
		}
	}
	return resp.UploadURL, nil
}

// UploadFileContent streams file content to a signed upload URL. The URL
// is pre-authorized by the service, so no bearer token is attached. The
// write is atomic on the storage side; it either lands fully or the
// finalize step will fail.
func (c *Client) UploadFileContent(ctx context.Context, uploadURL string, content io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, content)
	if err != nil {
		return &Error{Method: http.MethodPut, Path: uploadURL, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	req.ContentLength = size
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	c.logger.Debug("PUT %s (%d bytes)", uploadURL, size)

	httpClient := c.http
	if httpClient.Timeout < uploadTimeout {
		clone := *httpClient
		clone.Timeout = uploadTimeout
		httpClient = &clone
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &Error{Method: http.MethodPut, Path: uploadURL, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Method:     http.MethodPut,
			Path:       uploadURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
	return nil
}

// FinalizeFile marks an uploaded file complete.
func (c *Client) FinalizeFile(ctx context.Context, id asset.Identity, fileName string) error {
	return c.do(ctx, http.MethodPost, c.versionPath(id, "files", fileName, "finalize"), nil, nil, nil)
}

// DownloadURLs returns the signed download URLs for every file of an
// asset version.
func (c *Client) DownloadURLs(ctx context.Context, id asset.Identity) ([]FileDownload, error) {
	var resp downloadURLsResponse
	if err := c.do(ctx, http.MethodGet, c.versionPath(id, "download-urls"), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// DownloadFileContent streams content from a signed download URL. Like
// uploads, signed URLs carry their own authorization. The caller must
// close the returned reader.
func (c *Client) DownloadFileContent(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, &Error{Method: http.MethodGet, Path: downloadURL, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Method: http.MethodGet, Path: downloadURL, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &Error{
			Method:     http.MethodGet,
			Path:       downloadURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
	return resp.Body, nil
}

// DeleteMetadata removes the named metadata keys from an asset version.
func (c *Client) DeleteMetadata(ctx context.Context, id asset.Identity, keys []string) error {
	return c.do(ctx, http.MethodDelete, c.versionPath(id, "metadata"), nil, metadataDeleteRequest{Keys: keys}, nil)
}

func (c *Client) fieldPath(parts ...string) string {
	p := "/assets/v1/organizations/" + c.orgID + "/templates/fields"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// HasFieldDefinition reports whether a metadata field is registered on
// the organization.
func (c *Client) HasFieldDefinition(ctx context.Context, name string) (bool, error) {
	var def fieldDefinition
	err := c.do(ctx, http.MethodGet, c.fieldPath(name), nil, nil, &def)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RegisterFieldDefinition creates a text metadata field on the
// organization. Only text fields are supported by this client.
func (c *Client) RegisterFieldDefinition(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, c.fieldPath(), nil, fieldDefinition{Name: name, Type: "text"}, nil)
}
