package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/store-admin/internal/admin/backend"
)

func TestClientJSONRoundTrip(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/stores", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "2", r.URL.Query().Get("page"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Loja & Cia", body["name"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL+"/v1", ts.Client())
	require.NoError(t, err)

	var out struct {
		ID int `json:"id"`
	}
	err = client.JSON(context.Background(), backend.Request{
		Method:   http.MethodPost,
		Endpoint: "/stores",
		Query:    url.Values{"page": {"2"}},
		Body:     map[string]string{"name": "Loja & Cia"},
		Token:    "tok",
	}, &out)
	require.NoError(t, err)
	require.Equal(t, 7, out.ID)
}

func TestClientValidationError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"validation_failed","message":"invalid input","errors":{"name":["obrigatório"],"city":["muito longo"]}}`))
	}))
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	err = client.JSON(context.Background(), backend.Request{Method: http.MethodPost, Endpoint: "stores"}, nil)
	require.Error(t, err)
	require.True(t, backend.IsValidation(err))

	fields := backend.FieldErrors(err)
	require.Equal(t, []string{"obrigatório"}, fields["name"])
	require.Equal(t, []string{"city", "name"}, backend.SortedFields(fields))

	var apiErr *backend.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "validation_failed", apiErr.Code)
	require.Contains(t, err.Error(), "invalid input")
}

func TestClientNotFound(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	client, err := backend.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)

	err = client.JSON(context.Background(), backend.Request{Endpoint: "stores/99"}, nil)
	require.True(t, errors.Is(err, backend.ErrNotFound))
	require.False(t, backend.IsValidation(err))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := backend.NewClient("  ", nil)
	require.Error(t, err)
}
