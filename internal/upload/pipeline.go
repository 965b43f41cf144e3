// Package upload implements the multi-file asset upload pipeline:
// create a container asset, type its source dataset, then register,
// stream, and finalize each file in order.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/logging"
)

// Service is the slice of the API client the pipeline needs.
type Service interface {
	CreateAsset(ctx context.Context, name, description, primaryType string) (asset.Identity, []asset.Dataset, error)
	SetDatasetType(ctx context.Context, id asset.Identity, dataset asset.Dataset, primaryType string) error
	CreateFileRecord(ctx context.Context, id asset.Identity, datasetID, fileName string, size int64) (string, error)
	UploadFileContent(ctx context.Context, uploadURL string, content io.Reader, size int64) error
	FinalizeFile(ctx context.Context, id asset.Identity, fileName string) error
}

// Publisher moves a freshly uploaded asset to Published.
type Publisher interface {
	Publish(ctx context.Context, id asset.Identity) error
}

// InvalidInputError reports file arguments rejected before any network
// call is made.
type InvalidInputError struct {
	Path   string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("cannot upload %s: %s", e.Path, e.Reason)
}

// PartialFailureError reports an upload that created the asset but
// failed to land one or more files. The asset exists and retains every
// file that finished.
type PartialFailureError struct {
	Identity    asset.Identity
	FailedFiles []string
	Err         error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("asset %s created but %d file(s) failed to upload: %s",
		e.Identity.ID, len(e.FailedFiles), strings.Join(e.FailedFiles, ", "))
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// PublishIncompleteError reports an upload whose files all landed but
// whose automatic publication stopped partway.
type PublishIncompleteError struct {
	Identity asset.Identity
	Err      error
}

func (e *PublishIncompleteError) Error() string {
	return fmt.Sprintf("asset %s uploaded but not published: %v", e.Identity.ID, e.Err)
}

func (e *PublishIncompleteError) Unwrap() error { return e.Err }

// Request describes one upload.
type Request struct {
	Name        string
	Description string
	Paths       []string
	Publish     bool
}

// Pipeline executes asset uploads.
type Pipeline struct {
	service   Service
	publisher Publisher
	logger    *logging.Logger
}

// NewPipeline wires an upload pipeline.
func NewPipeline(service Service, publisher Publisher, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &Pipeline{service: service, publisher: publisher, logger: logger}
}

type localFile struct {
	path string
	name string
	size int64
}

// Run uploads the requested files as one new asset and returns its
// identity. Input validation happens first so that a bad argument never
// leaves a half-created asset behind.
func (p *Pipeline) Run(ctx context.Context, req Request) (asset.Identity, error) {
	files, err := validateFiles(req.Paths)
	if err != nil {
		return asset.Identity{}, err
	}

	primaryType := asset.InferPrimaryType(req.Paths)
	id, datasets, err := p.service.CreateAsset(ctx, req.Name, req.Description, primaryType)
	if err != nil {
		return asset.Identity{}, fmt.Errorf("failed to create asset %q: %w", req.Name, err)
	}
	p.logger.Info("created asset %s (version %s)", id.ID, id.Version)

	source, ok := asset.FindDataset(datasets, asset.SourceDatasetName)
	if !ok {
		return id, &PartialFailureError{
			Identity:    id,
			FailedFiles: req.Paths,
			Err:         fmt.Errorf("asset %s has no %s dataset", id.ID, asset.SourceDatasetName),
		}
	}
	if err := p.service.SetDatasetType(ctx, id, source, primaryType); err != nil {
		p.logger.Warn("failed to type dataset %s: %v", source.ID, err)
	}

	var failed []string
	var firstErr error
	for _, f := range files {
		if err := p.uploadOne(ctx, id, source.ID, f); err != nil {
			p.logger.Error("upload of %s failed: %v", f.path, err)
			failed = append(failed, f.path)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.logger.Info("uploaded %s (%d bytes)", f.name, f.size)
	}
	if len(failed) > 0 {
		return id, &PartialFailureError{Identity: id, FailedFiles: failed, Err: firstErr}
	}

	if req.Publish {
		if err := p.publisher.Publish(ctx, id); err != nil {
			return id, &PublishIncompleteError{Identity: id, Err: err}
		}
		p.logger.Info("published asset %s", id.ID)
	}
	return id, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, id asset.Identity, datasetID string, f localFile) error {
	uploadURL, err := p.service.CreateFileRecord(ctx, id, datasetID, f.name, f.size)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", f.name, err)
	}

	content, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer content.Close()

	if err := p.service.UploadFileContent(ctx, uploadURL, content, f.size); err != nil {
		return fmt.Errorf("failed to stream %s: %w", f.name, err)
	}
	if err := p.service.FinalizeFile(ctx, id, f.name); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", f.name, err)
	}
	return nil
}

// validateFiles checks every path before the first network call: each
// must exist, be a regular file, be readable, and be non-empty.
func validateFiles(paths []string) ([]localFile, error) {
	if len(paths) == 0 {
		return nil, &InvalidInputError{Path: "(none)", Reason: "at least one file is required"}
	}
	seen := make(map[string]struct{}, len(paths))
	files := make([]localFile, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &InvalidInputError{Path: path, Reason: "file does not exist"}
			}
			return nil, &InvalidInputError{Path: path, Reason: err.Error()}
		}
		if info.IsDir() {
			return nil, &InvalidInputError{Path: path, Reason: "is a directory"}
		}
		if info.Size() == 0 {
			return nil, &InvalidInputError{Path: path, Reason: "file is empty"}
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, &InvalidInputError{Path: path, Reason: "file is not readable"}
		}
		f.Close()

		name := filepath.Base(path)
		if _, dup := seen[name]; dup {
			return nil, &InvalidInputError{Path: path, Reason: fmt.Sprintf("duplicate file name %q", name)}
		}
		seen[name] = struct{}{}
		files = append(files, localFile{path: path, name: name, size: info.Size()})
	}
	return files, nil
}
