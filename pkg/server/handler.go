package server

import (
	"bufio"
	"errors"
	"net"
	"os"

	"github.com/niels/staticd/pkg/httperror"
	"github.com/niels/staticd/pkg/request"
	"github.com/niels/staticd/pkg/response"
	"github.com/rs/zerolog"
)

// handleConn drives one connection through parse, resolve, and respond.
// Every failure is converted to a best-effort error response; teardown runs
// on every exit path and close failures are never propagated.
func (s *Server) handleConn(conn net.Conn) {
	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug().Err(err).Msg("closing connection")
		}
	}()

	in := bufio.NewReader(conn)
	out := response.NewWriter(conn)

	req, err := request.Parse(in)
	if err != nil {
		s.respondError(out, err, log)
		return
	}

	target, err := s.resolver.Resolve(req.Path)
	if err != nil {
		s.respondError(out, err, log)
		return
	}

	file, err := os.Open(target.Path)
	if err != nil {
		s.respondError(out, err, log)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Debug().Err(err).Msg("closing file")
		}
	}()

	log.Debug().Str("path", req.Path).Int64("bytes", target.Size).Msg("serving file")
	out.WriteSuccess(file, target.Size)
}

// respondError maps a failure to its HTTP condition and writes the error
// response. Fixed conditions use their reason phrase as the body; timeouts
// and internal failures carry the underlying error message instead.
func (s *Server) respondError(out *response.Writer, err error, log zerolog.Logger) {
	cond := httperror.FromError(err)
	body := cond.Reason
	if cond == httperror.RequestTimeout || cond == httperror.Internal {
		body = err.Error()
	}
	log.Debug().Err(err).Int("status", cond.Code).Msg("request failed")
	out.WriteError(cond, body)
}
