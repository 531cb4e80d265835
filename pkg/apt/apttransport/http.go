package apttransport

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var _ Transport = &HTTPTransport{}

// HTTPTransport implements the HTTP Fetcher: conditional GET with
// If-Modified-Since/Last-Modified, Content-Length preallocation, and atomic
// rename-on-success staged through a sibling temp file in the destination's parent
// directory. One request is issued per Acquire call; the pipeline above this
// transport is responsible for sequencing calls one at a time.
type HTTPTransport struct {
	userAgent string
	timeout   time.Duration
	client    *http.Client
}

// NewHTTPTransport builds an HTTPTransport whose client honors the http_proxy
// environment variable via http.ProxyFromEnvironment, matching this project's
// single shared HTTP client policy.
func NewHTTPTransport() *HTTPTransport {
	timeout := time.Second * 60
	return &HTTPTransport{
		userAgent: "apt-look/1.0",
		timeout:   timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
	}
}

func (t *HTTPTransport) Schemes() []string {
	return []string{"http", "https"}
}

func (t *HTTPTransport) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URI.String(), nil)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to create request", Err: err}
	}

	httpReq.Header.Set("User-Agent", t.userAgent)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.LastModified != nil {
		httpReq.Header.Set("If-Modified-Since", req.LastModified.UTC().Format(http.TimeFormat))
	}

	client := t.client
	if req.Timeout > 0 {
		c := *t.client
		c.Timeout = req.Timeout
		client = &c
	}

	log.Debug().Str("url", req.URI.String()).Msg("apttransport: GET")
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "request failed", Err: err}
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		log.Debug().Str("url", req.URI.String()).Msg("apttransport: 304 not modified")
		return &AcquireResponse{
			URI:          req.URI,
			Headers:      responseHeaders(resp),
			LastModified: parseLastModified(resp.Header.Get("Last-Modified")),
			NotModified:  true,
		}, nil
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &HTTPStatusError{URI: req.URI, StatusCode: resp.StatusCode}
	}

	response := &AcquireResponse{
		URI:          resp.Request.URL,
		Headers:      responseHeaders(resp),
		LastModified: parseLastModified(resp.Header.Get("Last-Modified")),
	}
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			response.Size = size
		}
	}

	if req.Filename != "" {
		return t.stageAndRename(resp, response, req)
	}

	content, hashes, size, err := readAndHash(resp.Body, req.ExpectedHashes, req.ProgressCallback, response.Size)
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to read content", Err: err}
	}
	response.Content = content
	response.Hashes = hashes
	response.Size = size

	if err := verifyHashes(response.Hashes, req.ExpectedHashes); err != nil {
		content.Close()
		return nil, &AcquireError{URI: req.URI, Reason: "hash verification failed", Err: err}
	}

	return response, nil
}

// stageAndRename streams resp.Body into a sibling temp file of req.Filename,
// preallocating via Content-Length when known, then atomically renames it over the
// destination on success. On any failure the temp file is removed and the destination
// is left untouched. The destination's mtime is set to the response's Last-Modified
// when present, so a subsequent request can use it for If-Modified-Since.
func (t *HTTPTransport) stageAndRename(resp *http.Response, response *AcquireResponse, req *AcquireRequest) (*AcquireResponse, error) {
	defer resp.Body.Close()

	destDir := filepath.Dir(req.Filename)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to create parent directory", Err: err}
	}

	tmp, err := os.CreateTemp(destDir, ".apt-look-fetch-*")
	if err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to create temp file", Err: err}
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if response.Size > 0 {
		if err := tmp.Truncate(response.Size); err != nil {
			tmp.Close()
			return nil, &AcquireError{URI: req.URI, Reason: "failed to preallocate temp file", Err: err}
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			tmp.Close()
			return nil, &AcquireError{URI: req.URI, Reason: "failed to seek temp file", Err: err}
		}
	}

	hashers := make(map[string]hash.Hash, len(req.ExpectedHashes))
	for algo := range req.ExpectedHashes {
		if h := createHasher(algo); h != nil {
			hashers[algo] = h
		}
	}
	writers := []io.Writer{tmp}
	for _, h := range hashers {
		writers = append(writers, h)
	}
	multiWriter := io.MultiWriter(writers...)

	var body io.Reader = resp.Body
	if req.ProgressCallback != nil {
		body = &progressReader{reader: resp.Body, callback: req.ProgressCallback, total: response.Size}
	}

	written, err := io.Copy(multiWriter, body)
	if err != nil {
		tmp.Close()
		return nil, &AcquireError{URI: req.URI, Reason: "failed to write staged file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to close staged file", Err: err}
	}

	hashes := make(map[string]string, len(hashers))
	for algo, h := range hashers {
		hashes[algo] = fmt.Sprintf("%x", h.Sum(nil))
	}
	if err := verifyHashes(hashes, req.ExpectedHashes); err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "hash verification failed", Err: err}
	}

	if err := os.Rename(tmpPath, req.Filename); err != nil {
		return nil, &AcquireError{URI: req.URI, Reason: "failed to rename staged file into place", Err: err}
	}
	succeeded = true

	if response.LastModified != nil {
		_ = os.Chtimes(req.Filename, *response.LastModified, *response.LastModified)
	}

	response.Filename = req.Filename
	response.Hashes = hashes
	response.Size = written
	return response, nil
}

func readAndHash(reader io.ReadCloser, expectedHashes map[string]string, progressCallback func(int64, int64), totalSize int64) (io.ReadCloser, map[string]string, int64, error) {
	defer reader.Close()

	hashers := make(map[string]hash.Hash, len(expectedHashes))
	for algo := range expectedHashes {
		if h := createHasher(algo); h != nil {
			hashers[algo] = h
		}
	}

	var body io.Reader = reader
	if progressCallback != nil {
		body = &progressReader{reader: reader, callback: progressCallback, total: totalSize}
	}
	if len(hashers) > 0 {
		writers := make([]io.Writer, 0, len(hashers))
		for _, h := range hashers {
			writers = append(writers, h)
		}
		body = io.TeeReader(body, io.MultiWriter(writers...))
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, 0, err
	}

	hashes := make(map[string]string, len(hashers))
	for algo, h := range hashers {
		hashes[algo] = fmt.Sprintf("%x", h.Sum(nil))
	}

	return io.NopCloser(strings.NewReader(string(buf))), hashes, int64(len(buf)), nil
}

func responseHeaders(resp *http.Response) map[string]string {
	headers := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}

func parseLastModified(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(http.TimeFormat, value); err == nil {
		return &t
	}
	return nil
}

func createHasher(algorithm string) hash.Hash {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	case "sha256":
		return sha256.New()
	case "sha512":
		return sha512.New()
	default:
		return nil
	}
}

func verifyHashes(actual, expected map[string]string) error {
	for algo, expectedHash := range expected {
		if actualHash, ok := actual[algo]; ok {
			if !strings.EqualFold(actualHash, expectedHash) {
				return fmt.Errorf("hash mismatch for %s: expected %s, got %s", algo, expectedHash, actualHash)
			}
		}
	}
	return nil
}

type progressReader struct {
	reader   io.Reader
	callback func(int64, int64)
	total    int64
	read     int64
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.read += int64(n)
	if pr.callback != nil {
		pr.callback(pr.read, pr.total)
	}
	return n, err
}
