package profilestore

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arcadehub/lobby-server/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_NormalizesDualFieldNaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"profileId":"p1","displayName":"Ada","Color":"#112233","Emoji":"🐙"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	record, err := c.Read(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, types.ProfileID("p1"), record.ProfileID)
	assert.Equal(t, "Ada", record.DisplayName)
	assert.Equal(t, "#112233", record.Color)
	assert.Equal(t, "🐙", record.Emoji)
}

func TestRead_DefaultsOnEmptyAppearance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p2","name":"Grace"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	record, err := c.Read(t.Context(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "Grace", record.DisplayName)
	assert.Equal(t, types.DefaultColor, record.Color)
	assert.Equal(t, types.DefaultEmoji, record.Emoji)
}

func TestRead_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Read(t.Context(), "missing")
	assert.Error(t, err)
}

func TestCreate_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"new1","name":"New Player"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key")
	_, err := c.Create(t.Context(), CreateRequest{Name: "New Player"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}
