// Package gzippedhttp provides middleware that decompresses gzip request bodies and
// compresses JSON and text responses for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var compressibleContentTypes = []string{
	"application/json",
	"text/",
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// decompressingReader reads a gzip stream and closes both layers.
type decompressingReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newDecompressingReader(body io.ReadCloser) (*decompressingReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &decompressingReader{body: body, zr: zr}, nil
}

func (d *decompressingReader) Read(p []byte) (int, error) {
	return d.zr.Read(p)
}

func (d *decompressingReader) Close() error {
	if err := d.zr.Close(); err != nil {
		_ = d.body.Close()
		return err
	}
	return d.body.Close()
}

// compressingResponseWriter picks compression on the first WriteHeader or Write, once
// the handler has had a chance to set Content-Type.
type compressingResponseWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	decided     bool
	wroteHeader bool
}

func (c *compressingResponseWriter) decide() {
	if c.decided {
		return
	}
	c.decided = true

	header := c.Header()
	if header.Get("Content-Encoding") != "" || !isCompressible(header.Get("Content-Type")) {
		return
	}

	header.Set("Content-Encoding", "gzip")
	header.Add("Vary", "Accept-Encoding")
	header.Del("Content-Length")

	c.zw = gzipWriterPool.Get().(*gzip.Writer)
	c.zw.Reset(c.ResponseWriter)
}

func (c *compressingResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.decide()
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *compressingResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.zw == nil {
		return c.ResponseWriter.Write(p)
	}
	return c.zw.Write(p)
}

func (c *compressingResponseWriter) close() error {
	if c.zw == nil {
		return nil
	}

	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

func isCompressible(contentType string) bool {
	for _, prefix := range compressibleContentTypes {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

// Compress gzips JSON and text responses when the request's Accept-Encoding allows it.
func Compress(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressing := &compressingResponseWriter{ResponseWriter: response}
		defer func() {
			_ = compressing.close()
		}()

		h.ServeHTTP(compressing, request)
	}

	return http.HandlerFunc(middleware)
}

// Decompress replaces a gzip-encoded request body with its decompressed stream.
// A body that is not valid gzip is answered with 400.
func Decompress(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		reader, err := newDecompressingReader(request.Body)
		if err != nil {
			http.Error(response, "malformed gzip body", http.StatusBadRequest)
			return
		}
		defer reader.Close()

		request.Body = reader
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
