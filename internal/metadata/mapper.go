// Package metadata maps between the CSV surface users edit and the
// key/value metadata the asset service stores.
package metadata

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/logging"
)

const (
	headerName  = "Name"
	headerValue = "Value"
)

// Service is the slice of the API client the mapper needs.
type Service interface {
	GetAsset(ctx context.Context, id asset.Identity) (asset.Asset, error)
	UpdateAsset(ctx context.Context, a asset.Asset) error
	DeleteMetadata(ctx context.Context, id asset.Identity, keys []string) error
	HasFieldDefinition(ctx context.Context, name string) (bool, error)
	RegisterFieldDefinition(ctx context.Context, name string) error
}

// ParseError reports malformed CSV input.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid metadata CSV at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("invalid metadata CSV: %s", e.Message)
}

// DuplicateFieldError reports a field name appearing more than once in
// the input. Raised locally, before any network call.
type DuplicateFieldError struct {
	Name string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("metadata field %q appears more than once", e.Name)
}

// UnknownFieldError reports a field the organization has no definition
// for.
type UnknownFieldError struct {
	Name string
	Err  error
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("metadata field %q is not defined for the organization", e.Name)
}

func (e *UnknownFieldError) Unwrap() error { return e.Err }

// Field is one metadata entry in input order.
type Field struct {
	Name  string
	Value string
}

// Parse reads CSV metadata. The first record must be the Name,Value
// header; every following record is one field. Order is preserved and
// duplicate names are rejected.
func Parse(r io.Reader) ([]Field, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Message: "input is empty"}
	}
	if err != nil {
		return nil, csvError(err)
	}
	if len(header) != 2 || !strings.EqualFold(header[0], headerName) || !strings.EqualFold(header[1], headerValue) {
		return nil, &ParseError{Line: 1, Message: fmt.Sprintf("expected header %q, got %q", headerName+","+headerValue, strings.Join(header, ","))}
	}

	var fields []Field
	seen := make(map[string]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, csvError(err)
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, &ParseError{Line: line, Message: "field name is empty"}
		}
		if _, dup := seen[name]; dup {
			return nil, &DuplicateFieldError{Name: name}
		}
		seen[name] = struct{}{}
		fields = append(fields, Field{Name: name, Value: record[1]})
	}
	return fields, nil
}

func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &ParseError{Line: parseErr.Line, Message: parseErr.Err.Error()}
	}
	return &ParseError{Message: err.Error()}
}

// Serialize renders metadata as the same CSV shape Parse accepts.
func Serialize(fields []Field) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{headerName, headerValue}); err != nil {
		return "", err
	}
	for _, f := range fields {
		if err := w.Write([]string{f.Name, f.Value}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// Mapper applies metadata changes to assets.
type Mapper struct {
	service Service
	logger  *logging.Logger
}

// NewMapper wires a metadata mapper.
func NewMapper(service Service, logger *logging.Logger) *Mapper {
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &Mapper{service: service, logger: logger}
}

// Upload parses CSV metadata and applies it to the asset in a single
// update call. Existing fields not named in the input are preserved.
// With registerFields set, any field the organization has no definition
// for is registered first.
func (m *Mapper) Upload(ctx context.Context, id asset.Identity, input io.Reader, registerFields bool) error {
	fields, err := Parse(input)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return &ParseError{Message: "no metadata fields in input"}
	}

	if registerFields {
		if err := m.ensureFields(ctx, fields); err != nil {
			return err
		}
	}

	current, err := m.service.GetAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read asset %s: %w", id.ID, err)
	}
	if current.Metadata == nil {
		current.Metadata = make(map[string]string, len(fields))
	}
	for _, f := range fields {
		current.Metadata[f.Name] = f.Value
	}

	if err := m.service.UpdateAsset(ctx, current); err != nil {
		if name, ok := unknownField(err, fields); ok {
			return &UnknownFieldError{Name: name, Err: err}
		}
		return fmt.Errorf("failed to update asset %s metadata: %w", id.ID, err)
	}
	m.logger.Info("updated %d metadata field(s) on asset %s", len(fields), id.ID)
	return nil
}

// Download reads the asset's metadata and renders it as CSV, sorted by
// field name for stable output.
func (m *Mapper) Download(ctx context.Context, id asset.Identity) (string, error) {
	a, err := m.service.GetAsset(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to read asset %s: %w", id.ID, err)
	}
	return Serialize(sortedFields(a.Metadata))
}

// Delete removes the named fields from the asset.
func (m *Mapper) Delete(ctx context.Context, id asset.Identity, names []string) error {
	if len(names) == 0 {
		return &ParseError{Message: "no metadata field names given"}
	}
	if err := m.service.DeleteMetadata(ctx, id, names); err != nil {
		return fmt.Errorf("failed to delete metadata from asset %s: %w", id.ID, err)
	}
	m.logger.Info("deleted %d metadata field(s) from asset %s", len(names), id.ID)
	return nil
}

func (m *Mapper) ensureFields(ctx context.Context, fields []Field) error {
	for _, f := range fields {
		exists, err := m.service.HasFieldDefinition(ctx, f.Name)
		if err != nil {
			return fmt.Errorf("failed to look up field definition %q: %w", f.Name, err)
		}
		if exists {
			continue
		}
		if err := m.service.RegisterFieldDefinition(ctx, f.Name); err != nil {
			return fmt.Errorf("failed to register field definition %q: %w", f.Name, err)
		}
		m.logger.Info("registered metadata field %q", f.Name)
	}
	return nil
}

func sortedFields(metadata map[string]string) []Field {
	fields := make([]Field, 0, len(metadata))
	for name, value := range metadata {
		fields = append(fields, Field{Name: name, Value: value})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

// unknownField detects the service rejecting an undefined field. The
// error body names the offending key, so match it against the fields we
// just sent.
func unknownField(err error, fields []Field) (string, bool) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode < 400 || apiErr.StatusCode >= 500 {
		return "", false
	}
	body := strings.ToLower(apiErr.Body)
	if !strings.Contains(body, "field") {
		return "", false
	}
	for _, f := range fields {
		if strings.Contains(body, strings.ToLower(f.Name)) {
			return f.Name, true
		}
	}
	return "", false
}
