package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamcli/uamcli/internal/asset"
	"github.com/uamcli/uamcli/internal/auth"
	"github.com/uamcli/uamcli/internal/logging"
)

type staticTokens struct {
	value       string
	invalidated atomic.Int32
}

func (s *staticTokens) GetValidToken(ctx context.Context) (auth.Token, error) {
	return auth.Token{Value: s.value, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *staticTokens) Invalidate() {
	s.invalidated.Add(1)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:        serverURL,
		OrganizationID: "org-1",
		ProjectID:      "project-1",
		Tokens:         &staticTokens{value: "test-token"},
		Logger:         logging.NewWithWriter(false, true, io.Discard),
	})
	require.NoError(t, err)
	return client
}



func TestGetAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assets/v1/projects/project-1/assets/a1/versions/1", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("IncludeFields"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"assetId":      "a1",
			"assetVersion": "1",
			"name":         "bracket",
			"status":       "Draft",
			"isFrozen":     false,
			"datasets": []map[string]string{
				{"datasetId": "d1", "name": "Source"},
			},
			"metadata": map[string]string{"Material": "TPU"},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	got, err := client.GetAsset(context.Background(), asset.Identity{ID: "a1", Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, "bracket", got.Name)
	assert.Equal(t, asset.StatusDraft, got.Status)
	assert.Equal(t, "TPU", got.Metadata["Material"])
	source, ok := got.SourceDataset()
	require.True(t, ok)
	assert.Equal(t, "d1", source.ID)
}

func TestGetAssetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Not Found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetAsset(context.Background(), asset.Identity{ID: "missing", Version: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"assetId": "a1", "assetVersion": "1", "status": "Draft",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetAsset(context.Background(), asset.Identity{ID: "a1", Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWriteNotRetriedOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, _, err := client.CreateAsset(context.Background(), "bracket", "", "3D Model")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, int32(1), calls.Load(), "a dispatched write must not be retried")
}

func TestWriteRetriedWhenServiceUnreachable(t *testing.T) {
	// A closed port fails at dial time, before any bytes are sent.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	start := time.Now()
	_, _, err := client.CreateAsset(context.Background(), "bracket", "", "3D Model")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	// Two backoff sleeps (500ms + 1s) prove the dial failure was retried.
	assert.GreaterOrEqual(t, time.Since(start), 1500*time.Millisecond)
}

func TestUnauthorizedRefreshesTokenOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "expired", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"assetId": "a1", "assetVersion": "1", "status": "Draft",
		})
	}))
	defer server.Close()

	tokens := &staticTokens{value: "test-token"}
	client, err := NewClient(Config{
		BaseURL:        server.URL,
		OrganizationID: "org-1",
		ProjectID:      "project-1",
		Tokens:         tokens,
		Logger:         logging.NewWithWriter(false, true, io.Discard),
	})
	require.NoError(t, err)

	_, err = client.GetAsset(context.Background(), asset.Identity{ID: "a1", Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.invalidated.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestPersistentUnauthorizedFailsWithoutLoop(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.GetAsset(context.Background(), asset.Identity{ID: "a1", Version: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), calls.Load(), "one refresh attempt, then fail")
}

func TestCreateAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assets/v1/projects/project-1/assets", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bracket", body["name"])
		assert.Equal(t, "3D Model", body["primaryType"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"assetId":      "65a7d8646e7591cfd372ee51",
			"assetVersion": "1",
			"datasets": []map[string]string{
				{"datasetId": "d1", "name": "Source"},
				{"datasetId": "d2", "name": "Preview"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	id, datasets, err := client.CreateAsset(context.Background(), "bracket", "", "3D Model")
	require.NoError(t, err)
	assert.Equal(t, asset.Identity{ID: "65a7d8646e7591cfd372ee51", Version: "1"}, id)
	require.Len(t, datasets, 2)
	assert.Equal(t, "Source", datasets[0].Name)
}

func TestSetAssetStatusPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.SetAssetStatus(context.Background(), asset.Identity{ID: "a1", Version: "1"}, asset.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, "/assets/v1/projects/project-1/assets/a1/versions/1/status/inreview", gotPath)
}

func TestFileUploadSequence(t *testing.T) {
	var finalized atomic.Bool
	blob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "BlockBlob", r.Header.Get("x-ms-blob-type"))
		assert.Empty(t, r.Header.Get("Authorization"), "signed URL uploads carry no bearer token")
		w.WriteHeader(http.StatusCreated)
	}))
	defer blob.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/assets/v1/projects/project-1/assets/a1/versions/1/datasets/d1/files":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "model.fbx", body["filePath"])
			assert.Equal(t, float64(4), body["fileSize"])
			json.NewEncoder(w).Encode(map[string]string{"uploadUrl": blob.URL + "/signed"})
		case r.Method == http.MethodPost && r.URL.Path == "/assets/v1/projects/project-1/assets/a1/versions/1/files/model.fbx/finalize":
			finalized.Store(true)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	id := asset.Identity{ID: "a1", Version: "1"}

	uploadURL, err := client.CreateFileRecord(context.Background(), id, "d1", "model.fbx", 4)
	require.NoError(t, err)

	err = client.UploadFileContent(context.Background(), uploadURL, strings.NewReader("abcd"), 4)
	require.NoError(t, err)

	require.NoError(t, client.FinalizeFile(context.Background(), id, "model.fbx"))
	assert.True(t, finalized.Load())
}

func TestFieldDefinitionLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets/v1/organizations/org-1/templates/fields/Material":
			json.NewEncoder(w).Encode(map[string]string{"name": "Material", "type": "text"})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ok, err := client.HasFieldDefinition(context.Background(), "Material")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasFieldDefinition(context.Background(), "Vendor")
	require.NoError(t, err)
	assert.False(t, ok)
}
