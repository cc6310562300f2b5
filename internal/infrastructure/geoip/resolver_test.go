package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, h http.HandlerFunc) (*Resolver, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Config{Endpoint: srv.URL + "/json", Timeout: time.Second}), &calls
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestLocate_CachesAnswers(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", req.URL.Path)
		writeJSON(w, `{"status":"success","country":"United States","regionName":"California","city":"Mountain View"}`)
	})

	for range 3 {
		loc, err := r.Locate(context.Background(), "8.8.8.8")
		require.NoError(t, err)
		assert.Equal(t, "California", loc)
	}
	assert.Equal(t, int32(1), *calls)
}

func TestLocate_FallsBackToCountry(t *testing.T) {
	r, _ := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, `{"status":"success","country":"Iceland"}`)
	})

	loc, err := r.Locate(context.Background(), "::ffff:1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "Iceland", loc)
}

func TestLocate_LocalAddressesSkipLookup(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {})

	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.5", "::1", "fe80::1"} {
		loc, err := r.Locate(context.Background(), ip)
		require.NoError(t, err, ip)
		assert.Equal(t, LocalNetwork, loc, ip)
	}
	assert.Equal(t, int32(0), *calls)
}

func TestLocate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"fail body", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, `{"status":"fail","message":"reserved range"}`)
		}},
		{"empty", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, `{"status":"success"}`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(t, tt.handler)
			_, err := r.Locate(context.Background(), "9.9.9.9")
			assert.Error(t, err)
			assert.Equal(t, 0, r.cache.Len())
		})
	}
}

func TestLocate_InvalidIP(t *testing.T) {
	r, calls := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {})
	_, err := r.Locate(context.Background(), "not-an-ip")
	assert.Error(t, err)
	assert.Equal(t, int32(0), *calls)
}
