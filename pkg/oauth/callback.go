package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"fixforge-client/pkg/middleware"

	"go.uber.org/zap"
)

var ErrCallbackDenied = errors.New("sign-in was not completed")

const callbackPage = `<!doctype html><title>fixforge</title><p>%s You can close this tab.</p>`

// WaitForCallback serves ln until the provider redirects back to path with an
// authorization code, or ctx ends. The first callback wins.
func WaitForCallback(ctx context.Context, ln net.Listener, path string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s: %s", ErrCallbackDenied, q.Get("error"), q.Get("error_description"))
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, callbackPage, "Sign-in failed.")
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			res.code = q.Get("code")
			fmt.Fprintf(w, callbackPage, "Signed in.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{
		Handler:           middleware.TraceMiddleware(middleware.LoggerMiddleware(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		return res.code, res.err
	case err := <-serveErr:
		return "", fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
