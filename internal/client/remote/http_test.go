package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/common"
)

func TestFetch_QueryAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records", r.URL.Path)
		assert.Equal(t, "tasks", r.URL.Query().Get("collection"))
		assert.Equal(t, "100", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(fetchResponse{Records: []models.SyncRecord{
			{RecordId: "r1", Collection: "tasks", EncryptedData: []byte{1}, Nonce: []byte{2}, ServerUpdatedAt: 123},
		}})
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	c.SetAccessToken("tok")

	recs, err := c.Fetch(context.Background(), "alice", "tasks", 100)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].RecordId)
	assert.Equal(t, int64(123), recs[0].ServerUpdatedAt)
}

func TestPush_SendsBatchAndReadsAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req pushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Records, 2)

		ack := []string{req.Records[0].RecordId, req.Records[1].RecordId}
		_ = json.NewEncoder(w).Encode(pushResponse{Ack: ack})
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	ack, err := c.Push(context.Background(), []models.SyncRecord{
		{RecordId: "a", Collection: "tasks", EncryptedData: []byte{1}, Nonce: []byte{1}},
		{RecordId: "b", Collection: "tasks", EncryptedData: []byte{1}, Nonce: []byte{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ack)
}

func TestErrorMapping(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewHTTPClient(Config{BaseURL: srv.URL})
		_, err := c.Fetch(context.Background(), "alice", "tasks", 0)
		require.ErrorIs(t, err, common.ErrorUnauthorized)
	})

	t.Run("server error is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewHTTPClient(Config{BaseURL: srv.URL})
		_, err := c.Push(context.Background(), nil)
		require.ErrorIs(t, err, common.ErrNetwork)
	})

	t.Run("unreachable server is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nobody listening anymore

		c := NewHTTPClient(Config{BaseURL: srv.URL})
		_, err := c.Fetch(context.Background(), "alice", "tasks", 0)
		require.ErrorIs(t, err, common.ErrNetwork)
	})
}

func TestAuthEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/register":
			w.WriteHeader(http.StatusOK)
		case "/api/user/salt":
			assert.Equal(t, "alice", r.URL.Query().Get("username"))
			_ = json.NewEncoder(w).Encode(saltResponse{Salt: []byte("salt")})
		case "/api/user/login":
			var req loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice", req.Username)
			_ = json.NewEncoder(w).Encode(loginResponse{AccessToken: "tok123"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "alice", []byte("salt"), []byte("ver")))

	salt, err := c.GetSalt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("salt"), salt)

	tok, err := c.Login(ctx, "alice", []byte("ver"))
	require.NoError(t, err)
	assert.Equal(t, "tok123", tok)
	assert.Equal(t, "tok123", c.accessToken, "login installs the token")
}
