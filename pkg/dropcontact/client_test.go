package dropcontact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/batch", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Access-Token"))

		var body submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Siren)
		assert.Equal(t, "FR", body.Language)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Dupont", body.Data[0].LastName)

		_, _ = w.Write([]byte(`{"request_id":"req-1","success":true}`))
	}))
	defer srv.Close()

	id, err := NewClient("tok", WithBaseURL(srv.URL)).Submit(context.Background(), []Contact{
		{FirstName: "Jean", LastName: "Dupont", Company: "Acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)
}

func TestSubmit_NoRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"reason":"not enough credits"}`))
	}))
	defer srv.Close()

	_, err := NewClient("tok", WithBaseURL(srv.URL)).Submit(context.Background(), []Contact{{LastName: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough credits")
}

func TestSubmit_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithBaseURL(srv.URL)).Submit(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch/req-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"email":[{"email":"jean@acme.fr","qualification":"nominative@pro"}],"phone":"+33 1 23 45 67 89"},
			{"email":"marie@globex.fr","phone":[{"number":"+33 6 00 00 00 00"}]},
			{"email":[],"phone":null},
			{"email":{"weird":true}}
		]}`))
	}))
	defer srv.Close()

	res, err := NewClient("tok", WithBaseURL(srv.URL)).Result(context.Background(), "req-1")
	require.NoError(t, err)
	require.True(t, res.Ready())
	require.Len(t, res.Data, 4)

	assert.Equal(t, "jean@acme.fr", res.Data[0].Email.First())
	assert.Equal(t, "+33 1 23 45 67 89", res.Data[0].Phone.First())
	assert.Equal(t, "marie@globex.fr", res.Data[1].Email.First())
	assert.Equal(t, "+33 6 00 00 00 00", res.Data[1].Phone.First())
	assert.Empty(t, res.Data[2].Email.First())
	assert.Empty(t, res.Data[2].Phone.First())
	assert.Empty(t, res.Data[3].Email.First())
}

func TestResult_Pending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"reason":"Request still being processed"}`))
	}))
	defer srv.Close()

	res, err := NewClient("tok", WithBaseURL(srv.URL)).Result(context.Background(), "req-1")
	require.NoError(t, err)
	assert.False(t, res.Ready())
	assert.Equal(t, "Request still being processed", res.Reason)
}
