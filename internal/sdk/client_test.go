package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type diag struct {
	ID   int64  `json:"icdId"`
	Code string `json:"icdCode"`
	Name string `json:"icdName"`
}

func envelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestGetAllDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/v1/diagnoses", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		envelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []diag{
				{ID: 1, Code: "A00", Name: "Cholera"},
				{ID: 2, Code: "A01", Name: "Typhoid fever"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL, Token: "tok"}, "diagnoses")
	res := c.GetAll(context.Background())

	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Len(t, *res.Data, 2)
	assert.Equal(t, "A00", (*res.Data)[0].Code)
}

func TestGetByIDBuildsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/diagnoses/42", r.URL.Path)
		envelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    diag{ID: 42, Code: "B20", Name: "HIV disease"},
		})
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "diagnoses")
	res := c.GetByID(context.Background(), 42)

	require.True(t, res.Success)
	assert.Equal(t, int64(42), res.Data.ID)
}

func TestSavePostsEntityAndPassesFailureThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var got diag
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Code == "DUP" {
			envelope(w, http.StatusConflict, map[string]any{
				"success":      false,
				"errorMessage": "diagnosis code already exists",
			})
			return
		}
		got.ID = 7
		envelope(w, http.StatusOK, map[string]any{"success": true, "data": got})
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "diagnoses")

	res := c.Save(context.Background(), diag{Code: "A02", Name: "Salmonella"})
	require.True(t, res.Success)
	assert.Equal(t, int64(7), res.Data.ID)

	res = c.Save(context.Background(), diag{Code: "DUP"})
	assert.False(t, res.Success)
	assert.Equal(t, "diagnosis code already exists", res.ErrorMessage)
}

func TestUpdateActiveStatus(t *testing.T) {
	var gotBody statusRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v1/diagnoses/5/status", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		envelope(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "diagnoses")
	ok, err := c.UpdateActiveStatus(context.Background(), 5, false)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, gotBody.Active)
}

func TestNextCodePassesQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/patients/next-code", r.URL.Path)
		require.Equal(t, "UHID", r.URL.Query().Get("prefix"))
		require.Equal(t, "6", r.URL.Query().Get("width"))
		envelope(w, http.StatusOK, map[string]any{"success": true, "data": "UHID000123"})
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "patients")
	code, err := c.NextCode(context.Background(), "UHID", 6)

	require.NoError(t, err)
	assert.Equal(t, "UHID000123", code)
}

func TestTransportErrorNormalizedToFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "diagnoses")

	res := c.GetAll(context.Background())
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage)

	saveRes := c.Save(context.Background(), diag{Code: "A00"})
	assert.False(t, saveRes.Success)
	assert.NotEmpty(t, saveRes.ErrorMessage)

	_, err := c.UpdateActiveStatus(context.Background(), 1, true)
	assert.Error(t, err)
}

func TestUndecodableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := NewClient[diag, int64](Config{BaseURL: srv.URL}, "diagnoses")
	res := c.GetAll(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.ErrorMessage, "502")
}
