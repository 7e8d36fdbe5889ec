package disk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResourceSendsOAuthHeader(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Query().Get("path")
		w.Write([]byte(`{"name":"15.12.2024","path":"/FoodSchool64/15.12.2024","type":"dir"}`))
	}))
	defer srv.Close()

	c := NewClient("secret-token")
	c.base = srv.URL

	res, err := c.GetResource(context.Background(), "/FoodSchool64/15.12.2024")
	require.NoError(t, err)
	assert.Equal(t, "OAuth secret-token", gotAuth)
	assert.Equal(t, "/FoodSchool64/15.12.2024", gotPath)
	assert.Equal(t, "dir", res.Type)
}

func TestGetResourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Не удалось найти запрошенный ресурс.","error":"DiskNotFoundError"}`))
	}))
	defer srv.Close()

	c := NewClient("t")
	c.base = srv.URL

	_, err := c.GetResource(context.Background(), "/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetResourceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token invalid","error":"UnauthorizedError"}`))
	}))
	defer srv.Close()

	c := NewClient("t")
	c.base = srv.URL

	_, err := c.GetResource(context.Background(), "/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "token invalid")
}

func TestGetResourceFolderListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "Первое",
			"type": "dir",
			"_embedded": {"items": [
				{"name": "menu.txt", "path": "disk:/f/menu.txt", "type": "file"},
				{"name": "soup.jpg", "path": "disk:/f/soup.jpg", "type": "file", "size": 1024}
			]}
		}`))
	}))
	defer srv.Close()

	c := NewClient("t")
	c.base = srv.URL

	res, err := c.GetResource(context.Background(), "/f")
	require.NoError(t, err)
	require.Len(t, res.Embedded.Items, 2)
	assert.Equal(t, "soup.jpg", res.Embedded.Items[1].Name)
	assert.Equal(t, int64(1024), res.Embedded.Items[1].Size)
}

func TestDownloadURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resources/download", r.URL.Path)
		w.Write([]byte(`{"href":"https://downloader.disk.yandex.ru/file.jpg","method":"GET"}`))
	}))
	defer srv.Close()

	c := NewClient("t")
	c.base = srv.URL

	href, err := c.DownloadURL(context.Background(), "disk:/f/soup.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://downloader.disk.yandex.ru/file.jpg", href)
}
