package response

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/niels/staticd/pkg/httperror"
)

// splitResponse separates the header block from the body.
func splitResponse(t *testing.T, raw string) (head string, body string) {
	t.Helper()
	i := strings.Index(raw, "\r\n\r\n")
	if i < 0 {
		t.Fatalf("Response has no header/body separator: %q", raw)
	}
	return raw[:i], raw[i+4:]
}

func TestWriteSuccess(t *testing.T) {
	content := "hello, world\n"
	var buf bytes.Buffer

	rw := NewWriter(&buf)
	rw.WriteSuccess(strings.NewReader(content), int64(len(content)))

	head, body := splitResponse(t, buf.String())
	lines := strings.Split(head, "\r\n")

	if lines[0] != "HTTP/1.0 200 OK" {
		t.Errorf("Expected status line 'HTTP/1.0 200 OK', got %q", lines[0])
	}

	expectedHeaders := []string{
		fmt.Sprintf("Content-Length: %d", len(content)),
		"Cache-Control: private, max-age=0",
		"Connection: close",
		"Server: httpd",
	}
	if len(lines) != 1+len(expectedHeaders) {
		t.Fatalf("Expected %d header lines, got %d: %q", len(expectedHeaders), len(lines)-1, head)
	}
	for i, want := range expectedHeaders {
		if lines[i+1] != want {
			t.Errorf("Expected header %q, got %q", want, lines[i+1])
		}
	}

	if body != content {
		t.Errorf("Expected body %q, got %q", content, body)
	}
}

func TestWriteSuccessLargeBody(t *testing.T) {
	// Body larger than one copy chunk must round-trip byte for byte.
	content := strings.Repeat("0123456789abcdef", 200) // 3200 bytes
	var buf bytes.Buffer

	rw := NewWriter(&buf)
	rw.WriteSuccess(strings.NewReader(content), int64(len(content)))

	_, body := splitResponse(t, buf.String())
	if body != content {
		t.Errorf("Body mismatch: expected %d bytes, got %d", len(content), len(body))
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer

	rw := NewWriter(&buf)
	rw.WriteError(httperror.NotFound, "Not Found")

	head, body := splitResponse(t, buf.String())
	lines := strings.Split(head, "\r\n")

	if lines[0] != "HTTP/1.0 404 Not Found" {
		t.Errorf("Expected status line 'HTTP/1.0 404 Not Found', got %q", lines[0])
	}

	expectedHeaders := []string{
		"Content-Length: 9",
		"Content-Type: text/plain; charset=ISO-8859-1",
		"Cache-Control: private, max-age=0",
		"Connection: close",
		"Server: httpd",
	}
	if len(lines) != 1+len(expectedHeaders) {
		t.Fatalf("Expected %d header lines, got %d: %q", len(expectedHeaders), len(lines)-1, head)
	}
	for i, want := range expectedHeaders {
		if lines[i+1] != want {
			t.Errorf("Expected header %q, got %q", want, lines[i+1])
		}
	}

	if body != "Not Found" {
		t.Errorf("Expected body 'Not Found', got %q", body)
	}
}

func TestWriteErrorBodyVerbatim(t *testing.T) {
	var buf bytes.Buffer

	rw := NewWriter(&buf)
	rw.WriteError(httperror.Internal, "read /x: input/output error")

	head, body := splitResponse(t, buf.String())
	if !strings.HasPrefix(head, "HTTP/1.0 500 Internal Server Error\r\n") {
		t.Errorf("Unexpected status line in %q", head)
	}
	if body != "read /x: input/output error" {
		t.Errorf("Expected verbatim body, got %q", body)
	}
	want := fmt.Sprintf("Content-Length: %d", len(body))
	if !strings.Contains(head, want) {
		t.Errorf("Expected %q in headers %q", want, head)
	}
}

func TestResponseVersionAlwaysHTTP10(t *testing.T) {
	var buf bytes.Buffer
	rw := NewWriter(&buf)
	rw.WriteError(httperror.MethodNotAllowed, "Method Not Allowed")

	if !strings.HasPrefix(buf.String(), "HTTP/1.0 ") {
		t.Errorf("Every response must declare HTTP/1.0, got %q", buf.String())
	}
}
