// Package agi implements the Asterisk FastAGI protocol: the line-based
// command/response channel through which the switch hands a call to this
// process. Only the commands the voice bot needs are exposed.
package agi

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Session is one AGI conversation with Asterisk over a single connection.
// It is owned by exactly one call and is not safe for concurrent use.
type Session struct {
	r *bufio.Reader
	w io.Writer
	// Env holds the agi_* variables Asterisk sends at session start.
	Env map[string]string
}

// NewSession reads the AGI environment block (terminated by a blank line)
// from the connection and returns a ready session.
func NewSession(conn io.ReadWriter) (*Session, error) {
	s := &Session{
		r:   bufio.NewReader(conn),
		w:   conn,
		Env: make(map[string]string),
	}
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read AGI environment: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			slog.Warn("agi.NewSession: malformed environment line", "line", line)
			continue
		}
		s.Env[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(s.Env) == 0 {
		return nil, fmt.Errorf("empty AGI environment")
	}
	return s, nil
}

// UniqueID returns the Asterisk unique call identifier.
func (s *Session) UniqueID() string {
	if id := s.Env["agi_uniqueid"]; id != "" {
		return id
	}
	return "unknown"
}

// CallerIDName returns the caller's display name, if any.
func (s *Session) CallerIDName() string {
	return s.Env["agi_calleridname"]
}

// CallerID returns the caller's number, if any.
func (s *Session) CallerID() string {
	return s.Env["agi_callerid"]
}

// command writes one AGI command and parses the status line reply.
func (s *Session) command(cmd string) (result string, err error) {
	if _, err := fmt.Fprintf(s.w, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("failed to send AGI command: %w", err)
	}
	line, err := s.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read AGI response: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")

	code, rest, _ := strings.Cut(line, " ")
	status, err := strconv.Atoi(code)
	if err != nil {
		return "", fmt.Errorf("malformed AGI response %q", line)
	}
	if status != 200 {
		return "", fmt.Errorf("AGI command failed with status %d: %s", status, rest)
	}
	if value, ok := strings.CutPrefix(rest, "result="); ok {
		result, _, _ = strings.Cut(value, " ")
	}
	return result, nil
}

// Verbose sends a log message to the Asterisk console.
func (s *Session) Verbose(message string, level int) error {
	_, err := s.command(fmt.Sprintf("VERBOSE %q %d", message, level))
	return err
}

// StreamFile plays a sound file (name without extension, resolved against
// the Asterisk sounds directory).
func (s *Session) StreamFile(name, escapeDigits string) error {
	_, err := s.command(fmt.Sprintf("STREAM FILE %s %q", name, escapeDigits))
	return err
}

// RecordFile records channel audio into a file. timeoutMs bounds the whole
// recording; silenceSecs stops it after that much trailing silence.
func (s *Session) RecordFile(name, format, escapeDigits string, timeoutMs int, beep bool, silenceSecs int) error {
	cmd := fmt.Sprintf("RECORD FILE %s %s %q %d 0", name, format, escapeDigits, timeoutMs)
	if beep {
		cmd += " BEEP"
	}
	cmd += fmt.Sprintf(" s=%d", silenceSecs)
	_, err := s.command(cmd)
	return err
}

// Hangup terminates the channel.
func (s *Session) Hangup() error {
	_, err := s.command("HANGUP")
	return err
}
