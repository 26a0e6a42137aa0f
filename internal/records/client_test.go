package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualis/pkg/platform/sentinel"
	"qualis/pkg/requestcontext"
)

func TestClientSendsTenantHeader(t *testing.T) {
	var gotTenant, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant = r.Header.Get("X-Tenant-Id")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]json.RawMessage{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := requestcontext.WithTenantID(context.Background(), "org-42")

	_, err := client.Fetch(ctx, TypeProcesses)
	require.NoError(t, err)
	assert.Equal(t, "org-42", gotTenant)
	assert.Equal(t, "/api/processes", gotPath)
}

func TestClientTagsErrorsWithOperationAndType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Create(context.Background(), TypeIssues, "i1", map[string]string{"id": "i1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[records:create] issues:")
	assert.Contains(t, err.Error(), "503")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Update(context.Background(), TypeProcesses, "ghost", map[string]string{"id": "ghost"})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestClientDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "id": "p1", "type": "processes"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.Delete(context.Background(), TypeProcesses, "p1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/processes/p1", gotPath)
}
