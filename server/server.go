// Package server accepts plain-text request connections and hands complete
// requests to a polling loop without blocking it.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

// Config holds listener settings.
type Config struct {
	Listen          string `yaml:"listen"`            // e.g. ":80"
	ReadTimeoutSecs int    `yaml:"read_timeout_secs"` // per-request read deadline
	Backlog         int    `yaml:"backlog"`           // queued requests before new ones are refused
}

// Request holds every line of a request up to, not including, the
// terminating blank line. An Incomplete request lost its connection first;
// its lines still count but it cannot be answered.
type Request struct {
	Lines      []string
	Remote     string
	Received   time.Time
	Incomplete bool
	conn       net.Conn
}

// Respond writes text and closes the connection.
func (r *Request) Respond(text string) error {
	if r.conn == nil {
		return nil
	}
	defer r.conn.Close()
	r.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(r.conn, text); err != nil {
		return fmt.Errorf("respond to %s: %w", r.Remote, err)
	}
	return nil
}

// Server reads requests on background goroutines and queues them for Poll.
type Server struct {
	ln          net.Listener
	readTimeout time.Duration
	queue       chan *Request
	ctx         context.Context
	cancel      context.CancelFunc
}

// New starts listening on cfg.Listen.
func New(cfg Config) (*Server, error) {
	if cfg.Listen == "" {
		cfg.Listen = ":80"
	}
	if cfg.ReadTimeoutSecs <= 0 {
		cfg.ReadTimeoutSecs = 10
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 8
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ln:          ln,
		readTimeout: time.Duration(cfg.ReadTimeoutSecs) * time.Second,
		queue:       make(chan *Request, cfg.Backlog),
		ctx:         ctx,
		cancel:      cancel,
	}
	go s.acceptLoop()

	log.Printf("Door controller server listening on %s", ln.Addr())
	return s, nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Poll returns the next complete request, if one is ready. It never blocks.
func (s *Server) Poll() (*Request, bool) {
	select {
	case r := <-s.queue:
		return r, true
	default:
		return nil, false
	}
}

// Close stops accepting connections. Queued requests are closed unanswered.
func (s *Server) Close() error {
	s.cancel()
	err := s.ln.Close()
	for {
		select {
		case r := <-s.queue:
			r.close()
		default:
			return err
		}
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Accept: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	log.Printf("New client %s", remote)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	lines, err := ReadRequest(bufio.NewReader(conn))
	req := &Request{Lines: lines, Remote: remote, Received: time.Now(), conn: conn}
	if err != nil {
		log.Printf("Client %s disconnected: %v", remote, err)
		conn.Close()
		if len(lines) == 0 {
			return
		}
		req.Incomplete = true
		req.conn = nil
	}

	select {
	case s.queue <- req:
	case <-s.ctx.Done():
		req.close()
	default:
		log.Printf("Request queue full, dropping %s", remote)
		req.close()
	}
}

func (r *Request) close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// ReadRequest reads lines up to the first blank line. Carriage returns are
// dropped. A stream that ends before the blank line is an error; the lines
// read so far, including an unterminated last line, are still returned.
func ReadRequest(r *bufio.Reader) ([]string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if line = strings.ReplaceAll(line, "\r", ""); line != "" {
				lines = append(lines, line)
			}
			if errors.Is(err, io.EOF) {
				return lines, io.ErrUnexpectedEOF
			}
			return lines, err
		}
		line = strings.ReplaceAll(strings.TrimSuffix(line, "\n"), "\r", "")
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}
