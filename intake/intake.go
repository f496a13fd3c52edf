// Package intake maps request lines onto sequencer commands.
package intake

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Request line suffixes recognized as commands.
const (
	OpenSuffix   = "GET /open"
	ClosedSuffix = "GET /closed"
)

// Response is the fixed acknowledgment sent after every request, whatever
// it contained.
const Response = "HTTP/1.1 200 OK\r\n" +
	"Content-type:text/html\r\n" +
	"\r\n" +
	"Door Controller Ready<br>" +
	"Send GET /open to indicate door is open<br>" +
	"Send GET /closed to indicate door is closed<br>" +
	"\r\n"

// Command is a recognized door event.
type Command int

const (
	None Command = iota
	Open
	Closed
)

func (c Command) String() string {
	switch c {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "none"
	}
}

// Parse matches a request line against the command suffixes. Each suffix is
// tested against every prefix of the line as it accumulates, so
// "GET /open HTTP/1.1" is an Open. Both commands are reported, in the order
// they complete, when a line holds both. An unrecognized line yields none.
func Parse(line string) []Command {
	line = strings.TrimSuffix(line, "\r")
	open := strings.Index(line, OpenSuffix)
	closed := strings.Index(line, ClosedSuffix)

	var cmds []Command
	switch {
	case open >= 0 && closed >= 0:
		if open+len(OpenSuffix) <= closed+len(ClosedSuffix) {
			cmds = []Command{Open, Closed}
		} else {
			cmds = []Command{Closed, Open}
		}
	case open >= 0:
		cmds = []Command{Open}
	case closed >= 0:
		cmds = []Command{Closed}
	}
	return cmds
}

// ParseWord parses a bare command name as used by the event pipe and MQTT
// topics.
func ParseWord(word string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "open":
		return Open, nil
	case "closed":
		return Closed, nil
	default:
		return None, fmt.Errorf("unknown command: %s", word)
	}
}

// Closer is the sequencer operation triggered by an open-door event.
type Closer interface {
	RequestClose(now time.Duration) bool
}

// Intake dispatches commands to the sequencer. Like the sequencer it is
// driven from a single goroutine.
type Intake struct {
	seq Closer

	// Counters for status reporting.
	Requests int
	Opens    int
	Closeds  int
	Accepted int
}

// New creates an Intake feeding seq.
func New(seq Closer) *Intake {
	return &Intake{seq: seq}
}

// OnRequestLine processes one line of a request received at now. It
// reports true once the blank line terminating the request is seen, at
// which point Response should be sent and the connection closed.
func (in *Intake) OnRequestLine(line string, now time.Duration) bool {
	if strings.TrimSuffix(line, "\r") == "" {
		in.Requests++
		return true
	}
	for _, cmd := range Parse(line) {
		in.Dispatch(cmd, now)
	}
	return false
}

// Dispatch applies a command at now.
func (in *Intake) Dispatch(cmd Command, now time.Duration) {
	switch cmd {
	case Open:
		in.Opens++
		log.Println("Door is OPEN! Activating linear actuator...")
		if in.seq.RequestClose(now) {
			in.Accepted++
		}
	case Closed:
		in.Closeds++
		log.Println("Door is CLOSED")
	}
}
