package response

import (
	"bufio"
	"fmt"
	"io"

	"github.com/niels/staticd/pkg/httperror"
)

// Every response declares HTTP/1.0 and close semantics regardless of the
// request's declared version; there are no persistent connections.
const (
	protoVersion = "HTTP/1.0"
	crlf         = "\r\n"

	hdrCacheControl    = "Cache-Control: private, max-age=0"
	hdrConnectionClose = "Connection: close"
	hdrServer          = "Server: httpd"

	copyChunkSize = 512
)

// Writer formats HTTP responses onto a connection's output stream. Writes
// are best-effort: the connection is torn down after one exchange either
// way, so I/O failures while responding are swallowed.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps out in a buffered response writer.
func NewWriter(out io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(out)}
}

// WriteSuccess emits a 200 response with the given body length, then copies
// the body from src in fixed-size chunks.
func (rw *Writer) WriteSuccess(src io.Reader, size int64) {
	fmt.Fprintf(rw.w, "%s 200 OK%s", protoVersion, crlf)
	fmt.Fprintf(rw.w, "Content-Length: %d%s", size, crlf)
	rw.writeFixedHeaders()
	rw.w.WriteString(crlf)
	buf := make([]byte, copyChunkSize)
	io.CopyBuffer(rw.w, src, buf)
	rw.w.Flush()
}

// WriteError emits an error response for cond with body as a plain-text
// payload, verbatim.
func (rw *Writer) WriteError(cond *httperror.Condition, body string) {
	fmt.Fprintf(rw.w, "%s %d %s%s", protoVersion, cond.Code, cond.Reason, crlf)
	fmt.Fprintf(rw.w, "Content-Length: %d%s", len(body), crlf)
	fmt.Fprintf(rw.w, "Content-Type: text/plain; charset=ISO-8859-1%s", crlf)
	rw.writeFixedHeaders()
	rw.w.WriteString(crlf)
	rw.w.WriteString(body)
	rw.w.Flush()
}

func (rw *Writer) writeFixedHeaders() {
	rw.w.WriteString(hdrCacheControl + crlf)
	rw.w.WriteString(hdrConnectionClose + crlf)
	rw.w.WriteString(hdrServer + crlf)
}
