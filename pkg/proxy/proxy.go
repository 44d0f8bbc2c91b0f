// Package proxy is the development server: it forwards API calls to the
// backend and optionally serves the built frontend.
package proxy

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fixforge-client/pkg/middleware"
	"fixforge-client/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Options struct {
	// Target is the backend origin, e.g. https://api.example.com.
	Target string
	// Prefix is the forwarded path prefix. It is kept on the upstream request.
	Prefix string
	// Insecure skips upstream TLS verification.
	Insecure bool
	// StaticDir, if set, is served for every other path with index.html as
	// the SPA fallback.
	StaticDir string
}

// New builds the proxy handler with tracing, metrics and access logging.
func New(opts Options, logger *zap.Logger) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	target, err := url.Parse(opts.Target)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q", opts.Target)
	}
	prefix := "/" + strings.Trim(opts.Prefix, "/")

	metrics := middleware.NewMetrics("fixforge_proxy")
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler(target)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix(prefix).Handler(newReverseProxy(target, opts.Insecure, logger))

	if opts.StaticDir != "" {
		info, err := os.Stat(opts.StaticDir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", opts.StaticDir)
		}
		r.PathPrefix("/").Handler(spaHandler(opts.StaticDir))
	}

	return middleware.TraceMiddleware(
		metrics.Middleware(
			middleware.LoggerMiddleware(logger)(r),
		),
	), nil
}

func newReverseProxy(target *url.URL, insecure bool, logger *zap.Logger) http.Handler {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev proxy, mirrors secure:false
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			// changeOrigin: the upstream sees its own host, not ours.
			pr.Out.Host = target.Host
			middleware.PropagateTraceID(pr.Out, middleware.GetTraceID(pr.In))
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream request failed",
				zap.String("trace_id", middleware.GetTraceID(r)),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			response.Error(w, http.StatusBadGateway, "Upstream unavailable", err.Error())
		},
	}
}

// Health check endpoint
func healthHandler(target *url.URL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "", map[string]interface{}{
			"status":  "UP",
			"service": "dev-proxy",
			"target":  target.String(),
		})
	}
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not exist, so client-side routes survive a reload.
func spaHandler(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean)))
		if errors.Is(err, os.ErrNotExist) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
