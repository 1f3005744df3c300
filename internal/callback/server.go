package callback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/session"
)

// TokenHandler receives a token delivered by the authorization redirect.
type TokenHandler func(token string)

// Server is the local listener the authorization redirect lands on.
type Server struct {
	addr    string
	onToken TokenHandler
	router  chi.Router

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewServer(addr string, onToken TokenHandler) *Server {
	s := &Server{
		addr:    addr,
		onToken: onToken,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handle(pageRoot))
	r.Get("/success", s.handle(pageSuccess))
	r.Get("/error", s.handle(pageError))
	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return fmt.Errorf("callback server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	srv, done := s.srv, s.done
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError("CALLBACK_SERVE", ln.Addr().String(), err)
		}
	}()

	logger.Log("Callback: Listening on %s", ln.Addr())
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	<-done
	logger.Log("Callback: Stopped")
	return err
}

type page struct {
	Title   string
	Message string
}

const (
	pageRoot = iota
	pageSuccess
	pageError
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>orgpulse: {{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

func (s *Server) handle(kind int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, root := session.CaptureCallback(r.URL)
		if token != "" {
			logger.Log("Callback: Received token on %s [%s]", r.URL.Path, middleware.GetReqID(r.Context()))
			if s.onToken != nil {
				s.onToken(token)
			}
			http.Redirect(w, r, root.String(), http.StatusFound)
			return
		}

		p := page{Title: "Ready", Message: "orgpulse is waiting for GitHub. Use :connect in the terminal."}
		switch kind {
		case pageSuccess:
			p = page{Title: "Linked", Message: "Your GitHub account is linked. You can return to the terminal."}
		case pageError:
			p = page{Title: "Linking failed", Message: "GitHub did not link your account."}
			if msg := r.URL.Query().Get("message"); msg != "" {
				p.Message = msg
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if kind == pageError {
			w.WriteHeader(http.StatusBadRequest)
		}
		if err := pageTemplate.Execute(w, p); err != nil {
			logger.LogError("CALLBACK_RENDER", r.URL.Path, err)
		}
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Log("Callback: %s %s -> %d (%v) [%s]", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}
