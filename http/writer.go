package http

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"net/http"
)

type Discarder interface {
	Discard() error
}

// bufferedResponseWriter holds the status code, headers and body until
// Flush. A handler that fails partway through rendering can Discard
// everything it has produced and emit an error response instead, so the
// client never sees a partial body.
type bufferedResponseWriter struct {
	w http.ResponseWriter

	bytes.Buffer

	code    int
	written bool

	flushed  bool
	hijacked bool
}

func (w *bufferedResponseWriter) Header() http.Header {
	return w.w.Header()
}

func (w *bufferedResponseWriter) WriteHeader(code int) {
	w.code = code
	w.written = true
}

// Write is implemented by bytes.Buffer

func (w *bufferedResponseWriter) Flush() {
	if !w.hijacked {
		if w.written {
			w.w.WriteHeader(w.code)
		}
		w.Buffer.WriteTo(w.w)
		w.flushed = true
	}
}

func (w *bufferedResponseWriter) Discard() error {
	if w.flushed {
		return errors.New("response already flushed")
	}

	h := w.w.Header()
	for k := range h {
		delete(h, k)
	}
	w.Buffer.Reset()
	w.code = 0
	w.written = false
	return nil
}

type hijackableBufferedResponseWriter struct {
	bufferedResponseWriter
}

func (w *hijackableBufferedResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h := w.bufferedResponseWriter.w.(http.Hijacker)
	w.bufferedResponseWriter.hijacked = true
	return h.Hijack()
}

// bufferResponses wraps every response in a bufferedResponseWriter and
// flushes it once the inner handler returns.
func bufferResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var flusher http.Flusher

		if _, ok := w.(http.Hijacker); ok {
			bufw := &hijackableBufferedResponseWriter{bufferedResponseWriter{w: w}}
			w = bufw
			flusher = bufw
		} else {
			bufw := &bufferedResponseWriter{w: w}
			w = bufw
			flusher = bufw
		}

		defer flusher.Flush()
		next.ServeHTTP(w, r)
	})
}
