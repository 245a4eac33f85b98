package middleware

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

const noCache = "private, no-cache, must-revalidate"

// cacheRule maps a path prefix to a public max-age
type cacheRule struct {
	prefix  string
	maxAge  int
	getOnly bool
}

// first matching prefix wins
var cacheRules = []cacheRule{
	{prefix: "/api/ncm/search", maxAge: 120},
	{prefix: "/api/ncm/stats", maxAge: 300},
	{prefix: "/api/ncm/sector/", maxAge: 900},
	{prefix: "/api/ncm/", maxAge: 600, getOnly: true},
}

func cacheControlFor(r *http.Request) string {
	for _, rule := range cacheRules {
		if !strings.HasPrefix(r.URL.Path, rule.prefix) {
			continue
		}
		if rule.getOnly && r.Method != http.MethodGet {
			continue
		}
		return "public, max-age=" + strconv.Itoa(rule.maxAge) + ", must-revalidate"
	}
	return noCache
}

// CacheControl sets Cache-Control from the route table
func CacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControlFor(r))
		next.ServeHTTP(w, r)
	})
}

// bufferedResponse holds a handler's output until the ETag is known
type bufferedResponse struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	return b.body.Write(p)
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.status = status
}

func entityTag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// ETag answers If-None-Match with 304 for unchanged 200 responses to GET/HEAD
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedResponse{ResponseWriter: w}
		next.ServeHTTP(buf, r)

		status := buf.status
		if status == 0 {
			status = http.StatusOK
		}
		if status == http.StatusOK {
			tag := entityTag(buf.body.Bytes())
			w.Header().Set("ETag", tag)
			if w.Header().Get("Cache-Control") == "" {
				w.Header().Set("Cache-Control", "private, must-revalidate")
			}
			if r.Header.Get("If-None-Match") == tag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		w.WriteHeader(status)
		_, _ = w.Write(buf.body.Bytes())
	})
}

var gzipPool = sync.Pool{
	New: func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	},
}

type gzipResponse struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (g *gzipResponse) Write(p []byte) (int, error) {
	return g.gz.Write(p)
}

// Compression gzips bodies for clients that accept it
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gzipPool.Put(gz)
		}()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")
		next.ServeHTTP(&gzipResponse{ResponseWriter: w, gz: gz}, r)
	})
}

// ResponseOptimization chains CacheControl, ETag and Compression
func ResponseOptimization(next http.Handler) http.Handler {
	return CacheControl(ETag(Compression(next)))
}
