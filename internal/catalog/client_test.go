package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Options{
		APIURL:        server.URL,
		ImageURL:      server.URL + "/img",
		TextureURL:    server.URL + "/tex",
		RPS:           1000,
		Burst:         1000,
		MaxAssetBytes: 16,
	}, zerolog.Nop())
	// Override HTTP client to use test server
	client.http = server.Client()

	return client, server
}

func TestClient_Paintindexes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/skin/paintindexes", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("defindex"))
		w.Write([]byte(`[{"paintindex":0},{"paintindex":44}]`))
	})

	got, err := client.Paintindexes(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 44, got[1].Paintindex)
}

func TestClient_FloatList_Query(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/skin/floatlist", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("defindex"))
		assert.Equal(t, "44", r.URL.Query().Get("paintindex"))
		w.Write([]byte(`[{"uuid":"a"},{"uuid":"b"}]`))
	})

	got, err := client.FloatList(context.Background(), 7, 44)
	require.NoError(t, err)
	assert.Equal(t, "a", got[0].UUID)
	assert.Equal(t, "b", got[1].UUID)
}

func TestClient_Defindexes_MissingTypeName(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"uuid":"u1","name":"AK-47","type_name":"Rifle","defindex":7},{"uuid":"u2","name":"Knife","defindex":42}]`))
	})

	got, err := client.Defindexes(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].TypeName)
	assert.Equal(t, "Rifle", *got[0].TypeName)
	assert.Nil(t, got[1].TypeName)
}

func TestClient_Variant_FlattensNestedMaterial(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("uuid"))
		w.Write([]byte(`{
			"uuid":"abc","item_name":"AK-47","wear_name":"Factory New","skin_name":"Redline",
			"rarity_name":"Classified","uvType":"default","defindex":7,"paintindex":282,
			"texture":"ak47_redline","floatvalue":0.0123,
			"item":{"paint_data":{"paintablematerial0":{"name":"ak47","uvscale":"1.5"}}}
		}`))
	})

	rec, err := client.Variant(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.UUID)
	assert.Equal(t, "default", rec.UVType)
	assert.InDelta(t, 0.0123, rec.FloatValue, 1e-9)
	assert.Equal(t, "ak47", rec.Material)
	assert.Equal(t, "1.5", rec.UVScale)
	assert.Equal(t, 282, rec.Paintindex)
}

func TestClient_Variant_MissingMarkerAndItem(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"x","uvType":null,"floatvalue":"0.5","item":{"paint_data":{"paintablematerial0":{"name":"m","uvscale":2}}}}`))
	})

	rec, err := client.Variant(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, rec.UVType)
	assert.InDelta(t, 0.5, rec.FloatValue, 1e-9)
	assert.Equal(t, "2", rec.UVScale)
}

func TestClient_Variant_EmptyUUID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected")
	})
	_, err := client.Variant(context.Background(), "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"server error", http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			_, err := client.Paintindexes(context.Background(), 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "paintindexes", cerr.Op)
		})
	}
}

func TestClient_UnexpectedStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("nope"))
	})

	_, err := client.Defindexes(context.Background())
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.Code)
	assert.Equal(t, "nope", serr.Body)
}

func TestClient_MalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	_, err := client.Defindexes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestClient_AssetURLs(t *testing.T) {
	client := New(Options{ImageURL: "https://img", TextureURL: "https://tex"}, zerolog.Nop())
	assert.Equal(t, "https://img/abc_icon.png", client.ImageURL("abc"))
	assert.Equal(t, "https://tex/ak_red_component1_texture1.png", client.TextureURL("ak_red"))
}

func TestClient_OpenAsset_SizeCap(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "small_icon.png") {
			w.Write([]byte("0123456789"))
			return
		}
		w.Write([]byte(strings.Repeat("x", 64)))
	})
	rc, err := client.OpenAsset(context.Background(), client.ImageURL("small"))
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(b))

	rc, err = client.OpenAsset(context.Background(), client.ImageURL("big"))
	require.NoError(t, err)
	_, err = io.ReadAll(rc)
	rc.Close()
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestClient_RateLimitWait_RespectsContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	client.limiter.SetLimit(0.001)
	client.limiter.SetBurst(1)

	// First call consumes the only token.
	_, err := client.Paintindexes(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Paintindexes(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
