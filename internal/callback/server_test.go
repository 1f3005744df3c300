package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type tokenRecorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *tokenRecorder) handle(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
}

func (r *tokenRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func TestTokenIsCapturedAndStripped(t *testing.T) {
	for _, path := range []string{"/", "/success", "/error"} {
		t.Run(path, func(t *testing.T) {
			rec := &tokenRecorder{}
			srv := NewServer("127.0.0.1:0", rec.handle)

			req := httptest.NewRequest(http.MethodGet, path+"?token=abc123", nil)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/", w.Header().Get("Location"))
			assert.Equal(t, []string{"abc123"}, rec.all())
		})
	}
}

func TestPagesWithoutToken(t *testing.T) {
	rec := &tokenRecorder{}
	srv := NewServer("127.0.0.1:0", rec.handle)

	tests := []struct {
		path     string
		code     int
		contains string
	}{
		{"/", http.StatusOK, "waiting for GitHub"},
		{"/success", http.StatusOK, "linked"},
		{"/error?message=access+denied", http.StatusBadRequest, "access denied"},
		{"/error?message=%3Cscript%3E", http.StatusBadRequest, "&lt;script&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
	assert.Empty(t, rec.all())
}

func TestUnknownRoute(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/elsewhere?token=x", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartAndShutdown(t *testing.T) {
	rec := &tokenRecorder{}
	srv := NewServer("127.0.0.1:0", rec.handle)
	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start())

	transport := &http.Transport{}
	defer transport.CloseIdleConnections()
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(srv.URL() + "?token=live")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	transport.CloseIdleConnections()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, []string{"live"}, rec.all())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, srv.Shutdown(ctx))
}
