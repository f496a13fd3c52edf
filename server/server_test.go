package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestReadRequest(t *testing.T) {
	in := "GET /open HTTP/1.1\r\nHost: door\r\n\r\nGET /ignored\r\n"
	lines, err := ReadRequest(bufio.NewReader(strings.NewReader(in)))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if len(lines) != 2 || lines[0] != "GET /open HTTP/1.1" || lines[1] != "Host: door" {
		t.Errorf("Unexpected lines %q", lines)
	}
}

func TestReadRequest_Truncated(t *testing.T) {
	lines, err := ReadRequest(bufio.NewReader(strings.NewReader("GET /open HTTP/1.1\r\n")))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected unexpected EOF, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "GET /open HTTP/1.1" {
		t.Errorf("Expected the line read before EOF, got %q", lines)
	}

	lines, _ = ReadRequest(bufio.NewReader(strings.NewReader("Host: door\r\nGET /open")))
	if len(lines) != 2 || lines[1] != "GET /open" {
		t.Errorf("Expected unterminated last line kept, got %q", lines)
	}
}

func waitPoll(t *testing.T, s *Server) *Request {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, ok := s.Poll(); ok {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("No request queued")
	return nil
}

func TestServer_PollAndRespond(t *testing.T) {
	s, err := New(Config{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, ok := s.Poll(); ok {
		t.Fatal("Poll returned a request before any client connected")
	}

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	io.WriteString(conn, "GET /closed HTTP/1.1\r\n\r\n")

	req := waitPoll(t, s)
	if len(req.Lines) != 1 || req.Lines[0] != "GET /closed HTTP/1.1" {
		t.Errorf("Unexpected lines %q", req.Lines)
	}
	if err := req.Respond("ack\r\n"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "ack\r\n" {
		t.Errorf("Expected ack, got %q", got)
	}
}

func TestServer_DroppedClientQueuesLinesRead(t *testing.T) {
	s, err := New(Config{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	io.WriteString(conn, "GET /open HTTP/1.1\r\n")
	conn.Close()

	req := waitPoll(t, s)
	if !req.Incomplete {
		t.Error("Expected request to be marked incomplete")
	}
	if len(req.Lines) != 1 || req.Lines[0] != "GET /open HTTP/1.1" {
		t.Errorf("Unexpected lines %q", req.Lines)
	}
	if err := req.Respond("ack\r\n"); err != nil {
		t.Errorf("Respond on incomplete request: %v", err)
	}
}

func TestServer_EmptyConnectionNotQueued(t *testing.T) {
	s, err := New(Config{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()

	time.Sleep(100 * time.Millisecond)
	if _, ok := s.Poll(); ok {
		t.Error("Connection without lines was queued")
	}
}
