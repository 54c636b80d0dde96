package chainhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	transporthttp "github.com/gabapcia/hookrelay/internal/pkg/transport/http"
	"github.com/gabapcia/hookrelay/internal/predreg"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPredicate(t *testing.T) {
	t.Run("posts the predicate with the api key", func(t *testing.T) {
		var (
			gotMethod string
			gotPath   string
			gotAPIKey string
			gotBody   []byte
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			gotAPIKey = r.Header.Get(apiKeyHeader)
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		c := NewClient(transporthttp.NewClient(), srv.URL, "secret-key")

		predicate := predreg.Predicate{
			UUID:           uuid.NewString(),
			SubscriptionID: "dex-swap/main",
			Network:        "mainnet",
			MatchRule:      "contract_call:amm-pool-v2",
			CallbackURL:    "https://hooks.example.com/chainhook/events",
		}

		err := c.RegisterPredicate(t.Context(), predicate)

		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/v1/predicates", gotPath)
		assert.Equal(t, "secret-key", gotAPIKey)

		var payload predicatePayload
		require.NoError(t, json.Unmarshal(gotBody, &payload))
		assert.Equal(t, predicate.UUID, payload.UUID)
		assert.Equal(t, "dex-swap/main", payload.SubscriptionID)
		assert.Equal(t, "mainnet", payload.Network)
	})

	t.Run("omits the api key header when unset", func(t *testing.T) {
		var hasAPIKey bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasAPIKey = r.Header[apiKeyHeader]
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := NewClient(transporthttp.NewClient(), srv.URL, "")

		err := c.RegisterPredicate(t.Context(), predreg.Predicate{UUID: uuid.NewString()})

		require.NoError(t, err)
		assert.False(t, hasAPIKey)
	})

	t.Run("fails on a rejecting registry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer srv.Close()

		c := NewClient(transporthttp.NewClient(), srv.URL, "")

		err := c.RegisterPredicate(t.Context(), predreg.Predicate{UUID: uuid.NewString()})

		require.Error(t, err)
		assert.ErrorContains(t, err, "409")
	})
}

func TestDeregisterPredicate(t *testing.T) {
	t.Run("deletes the predicate by uuid", func(t *testing.T) {
		var (
			gotMethod string
			gotPath   string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := NewClient(transporthttp.NewClient(), srv.URL, "")

		predicateUUID := uuid.NewString()

		err := c.DeregisterPredicate(t.Context(), predicateUUID)

		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, gotMethod)
		assert.Equal(t, "/v1/predicates/"+predicateUUID, gotPath)
	})

	t.Run("fails when the predicate is unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewClient(transporthttp.NewClient(), srv.URL, "")

		err := c.DeregisterPredicate(t.Context(), uuid.NewString())

		require.Error(t, err)
	})
}
