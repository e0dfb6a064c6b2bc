package request

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/niels/staticd/pkg/httperror"
)

// Request is the parsed first line of an HTTP exchange. It lives for the
// duration of one connection and is discarded afterwards.
type Request struct {
	Method  string
	Path    string // percent-decoded
	Version string
}

const (
	methodGET     = "GET"
	versionHTTP10 = "HTTP/1.0"
	versionHTTP11 = "HTTP/1.1"
)

// Parse reads one request line plus the trailing header block from r.
// Header lines are consumed and discarded; no header values are retained.
//
// Failures are reported as httperror conditions: a malformed request line,
// an invalid percent-escape, or an unsupported protocol version yield
// BadRequest, and any method other than GET yields MethodNotAllowed. I/O
// errors (including read timeouts) are returned as-is for the caller to map.
func Parse(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, fmt.Errorf("reading request line: %w", err)
	}

	tokens := strings.Split(line, " ")
	var req *Request
	parseErr := error(httperror.BadRequest)
	if len(tokens) == 3 {
		path, err := decodePath(tokens[1])
		if err == nil {
			req = &Request{Method: tokens[0], Path: path, Version: tokens[2]}
			parseErr = nil
		}
	}

	// Drain the header block even when the request line is bad, so the
	// error response is written against a fully read request.
	if err := drainHeaders(r); err != nil {
		return nil, fmt.Errorf("reading headers: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	if req.Version != versionHTTP10 && req.Version != versionHTTP11 {
		return nil, httperror.BadRequest
	}
	if req.Method != methodGET {
		return nil, httperror.MethodNotAllowed
	}
	return req, nil
}

// decodePath percent-decodes the raw request path byte-wise: %XX becomes the
// literal byte and '+' becomes a space. No UTF-8 validation is applied; the
// decoded bytes pass through to path resolution as-is.
func decodePath(raw string) (string, error) {
	return url.QueryUnescape(raw)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func drainHeaders(r *bufio.Reader) error {
	for {
		line, err := readLine(r)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}
