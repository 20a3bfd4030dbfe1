package compress

import (
	"compress/gzip"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type GzipWriter struct {
	http.ResponseWriter
	Writer *gzip.Writer
}

func (w GzipWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w GzipWriter) Write(b []byte) (int, error) {
	if w.Header().Get("Content-Encoding") == "" {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// GzipHandle compresses responses for clients that accept gzip.
func GzipHandle(next http.Handler, log *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
		if err != nil {
			log.Errorf("Problem with creating gzip writer: %s", err.Error())
			next.ServeHTTP(w, r)
			return
		}
		defer func() {
			if err := gz.Close(); err != nil {
				log.Errorf("Problem with closing gzip writer: %s", err.Error())
			}
		}()
		next.ServeHTTP(GzipWriter{ResponseWriter: w, Writer: gz}, r)
	})
}
