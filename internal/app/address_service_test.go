package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestWithoutCredentialsReturnsEmptyList(t *testing.T) {
	service := NewAddressService("", "", nil)
	assert.False(t, service.Configured())

	suggestions, err := service.Suggest(context.Background(), "2301 Blake St", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestions":[]}`, string(suggestions))
}

func TestSuggestWithBlankSearchReturnsEmptyList(t *testing.T) {
	service := NewAddressService("id", "token", nil)

	suggestions, err := service.Suggest(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestions":[]}`, string(suggestions))
}

func TestSuggestForwardsQueryParameters(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Write([]byte(`{"suggestions":[{"street_line":"2301 Blake St","city":"Denver","state":"CO"}]}`))
	}))
	defer server.Close()

	service := NewAddressService("id", "token", nil)
	service.lookupURL = server.URL

	suggestions, err := service.Suggest(context.Background(), "2301 Blake", "2301 Blake St (3)")
	require.NoError(t, err)
	assert.Contains(t, string(suggestions), "2301 Blake St")

	assert.Equal(t, "id", gotQuery["auth-id"])
	assert.Equal(t, "token", gotQuery["auth-token"])
	assert.Equal(t, "2301 Blake", gotQuery["search"])
	assert.Equal(t, "2301 Blake St (3)", gotQuery["selected"])
	assert.Equal(t, "us", gotQuery["country"])
	assert.Equal(t, "postal", gotQuery["source"])
	assert.Equal(t, "city", gotQuery["prefer_geolocation"])
}

func TestSuggestFailsOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	service := NewAddressService("id", "token", nil)
	service.lookupURL = server.URL

	_, err := service.Suggest(context.Background(), "2301 Blake", "")
	assert.Error(t, err)
}
