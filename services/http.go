package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
)

// ValidKey compares a device key in constant time. An unset expected key
// never matches.
func ValidKey(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func JSONResponse(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Println("Error writing response:", err)
	}
}

func TextResponse(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	fmt.Fprint(w, msg)
}

func logRequest(w io.Writer, p handlers.LogFormatterParams) {
	log.Printf("%s %s %d %dB %s", p.Request.Method, p.URL.RequestURI(), p.StatusCode, p.Size, p.Request.RemoteAddr)
}

// LoggingHandler logs every request with its status code.
func LoggingHandler(h http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, h, logRequest)
}

// ListenAndServe serves handler on addr until ctx is cancelled, accepting
// at most maxConns connections at once (unlimited when 0).
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, maxConns int) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	return Serve(ctx, ln, handler, maxConns)
}

func Serve(ctx context.Context, ln net.Listener, handler http.Handler, maxConns int) error {
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdown)
	}()

	log.Println("Listening on " + ln.Addr().String())
	err := server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
