package metadata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamcli/uamcli/internal/api"
	"github.com/uamcli/uamcli/internal/asset"
)

type fakeService struct {
	asset      asset.Asset
	getCalls   int
	updated    *asset.Asset
	updateErr  error
	deleted    []string
	defined    map[string]bool
	registered []string
}

func (f *fakeService) GetAsset(ctx context.Context, id asset.Identity) (asset.Asset, error) {
	f.getCalls++
	return f.asset, nil
}

func (f *fakeService) UpdateAsset(ctx context.Context, a asset.Asset) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = &a
	return nil
}

func (f *fakeService) DeleteMetadata(ctx context.Context, id asset.Identity, keys []string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}

func (f *fakeService) HasFieldDefinition(ctx context.Context, name string) (bool, error) {
	return f.defined[name], nil
}

func (f *fakeService) RegisterFieldDefinition(ctx context.Context, name string) error {
	f.registered = append(f.registered, name)
	return nil
}

const sampleCSV = "Name,Value\nMaterial,TPU\nVendor,Non\n"

func TestParse(t *testing.T) {
	fields, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []Field{
		{Name: "Material", Value: "TPU"},
		{Name: "Vendor", Value: "Non"},
	}, fields)
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	fields, err := Parse(strings.NewReader("name,value\nMaterial,TPU\n"))
	require.NoError(t, err)
	require.Len(t, fields, 1)
}

func TestParseRejectsBadHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("Key,Data\nMaterial,TPU\n"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Line)
}

func TestParseRejectsEmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseRejectsDuplicateField(t *testing.T) {
	_, err := Parse(strings.NewReader("Name,Value\nMaterial,TPU\nMaterial,PLA\n"))

	var dup *DuplicateFieldError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "Material", dup.Name)
}

func TestParseRejectsWrongColumnCount(t *testing.T) {
	_, err := Parse(strings.NewReader("Name,Value\nMaterial,TPU,extra\n"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestSerializeRoundTrip(t *testing.T) {
	fields, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	out, err := Serialize(fields)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, out)
}

func TestSerializeQuotesValuesWithCommas(t *testing.T) {
	out, err := Serialize([]Field{{Name: "Notes", Value: "soft, flexible"}})
	require.NoError(t, err)

	fields, err := Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "soft, flexible", fields[0].Value)
}

func TestUploadMergesIntoExistingMetadata(t *testing.T) {
	service := &fakeService{asset: asset.Asset{
		Identity: asset.Identity{ID: "a1", Version: "1"},
		Name:     "bracket",
		Status:   asset.StatusDraft,
		Metadata: map[string]string{"Color": "red"},
	}}
	mapper := NewMapper(service, nil)

	err := mapper.Upload(context.Background(), service.asset.Identity, strings.NewReader(sampleCSV), false)
	require.NoError(t, err)

	require.NotNil(t, service.updated)
	assert.Equal(t, map[string]string{
		"Color":    "red",
		"Material": "TPU",
		"Vendor":   "Non",
	}, service.updated.Metadata)
}

func TestUploadRejectsDuplicatesWithoutNetworkCalls(t *testing.T) {
	service := &fakeService{}
	mapper := NewMapper(service, nil)

	err := mapper.Upload(context.Background(), asset.Identity{ID: "a1", Version: "1"},
		strings.NewReader("Name,Value\nMaterial,TPU\nMaterial,PLA\n"), false)

	var dup *DuplicateFieldError
	require.ErrorAs(t, err, &dup)
	assert.Zero(t, service.getCalls, "validation failures must not touch the service")
}

func TestUploadDetectsUnknownField(t *testing.T) {
	service := &fakeService{
		asset: asset.Asset{Identity: asset.Identity{ID: "a1", Version: "1"}, Status: asset.StatusDraft},
		updateErr: &api.Error{
			StatusCode: 400,
			Body:       `{"title":"Bad Request","detail":"unknown metadata field 'Vendor'"}`,
			Err:        api.ErrMalformed,
		},
	}
	mapper := NewMapper(service, nil)

	err := mapper.Upload(context.Background(), service.asset.Identity, strings.NewReader(sampleCSV), false)

	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Vendor", unknown.Name)
}

func TestUploadRegistersMissingFields(t *testing.T) {
	service := &fakeService{
		asset:   asset.Asset{Identity: asset.Identity{ID: "a1", Version: "1"}, Status: asset.StatusDraft},
		defined: map[string]bool{"Material": true},
	}
	mapper := NewMapper(service, nil)

	err := mapper.Upload(context.Background(), service.asset.Identity, strings.NewReader(sampleCSV), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Vendor"}, service.registered, "only undefined fields get registered")
}

func TestDownloadSortsByName(t *testing.T) {
	service := &fakeService{asset: asset.Asset{
		Identity: asset.Identity{ID: "a1", Version: "1"},
		Status:   asset.StatusDraft,
		Metadata: map[string]string{"Vendor": "Non", "Material": "TPU"},
	}}
	mapper := NewMapper(service, nil)

	out, err := mapper.Download(context.Background(), service.asset.Identity)
	require.NoError(t, err)
	assert.Equal(t, "Name,Value\nMaterial,TPU\nVendor,Non\n", out)
}

func TestDeleteForwardsKeys(t *testing.T) {
	service := &fakeService{}
	mapper := NewMapper(service, nil)

	err := mapper.Delete(context.Background(), asset.Identity{ID: "a1", Version: "1"}, []string{"Material", "Vendor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Material", "Vendor"}, service.deleted)
}

func TestDeleteRejectsEmptyKeyList(t *testing.T) {
	service := &fakeService{}
	mapper := NewMapper(service, nil)

	err := mapper.Delete(context.Background(), asset.Identity{ID: "a1", Version: "1"}, nil)
	require.Error(t, err)
	assert.Empty(t, service.deleted)
}
