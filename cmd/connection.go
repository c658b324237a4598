// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Thermoquad/ubxstat/internal/capture"
	"github.com/Thermoquad/ubxstat/internal/config"
	"github.com/Thermoquad/ubxstat/internal/logging"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// PasswordEnvVar holds the WebSocket password
const PasswordEnvVar = "UBXSTAT_PASSWORD"

// Connection is a byte source: a serial port, a WebSocket bridge or a replayed
// capture. ubxstat never transmits to the receiver.
type Connection interface {
	io.Reader
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading.
// Each binary message carries a slice of the receiver's serial stream.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    atomic.Bool // set on failure or Close, read by the reading goroutine
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, ErrConnectionClosed
	}

	// Drain the previous message first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if w.closed.Swap(true) {
				return 0, ErrConnectionClosed
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, ErrConnectionClosed
			}
			return 0, err
		}

		// Text frames are bridge chatter, not receiver data
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Close() error {
	w.closed.Store(true)
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection (8N1)
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, e.g. piped input
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens the source selected by c. The returned string
// describes it for banners.
func OpenConnection(c *config.Config) (Connection, string, error) {
	source, err := c.RequireSource()
	if err != nil {
		return nil, "", err
	}

	var (
		conn   Connection
		target string
		info   string
	)

	switch source {
	case config.SourceWebSocket:
		password := ""
		if c.WebSocket.Username != "" {
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}
		target = c.WebSocket.URL
		conn, err = OpenWebSocketConnection(target, c.WebSocket.Username, password, c.WebSocket.NoSSLVerify)
		info = fmt.Sprintf("WebSocket: %s", target)

	case config.SourceSerial:
		target = c.Serial.Port
		conn, err = OpenSerialConnection(target, c.Serial.Baud)
		info = fmt.Sprintf("Serial: %s @ %d baud", target, c.Serial.Baud)

	case config.SourceReplay:
		target = c.Replay.Path
		var p *capture.Player
		p, err = openReplay(target, c.Replay.Speed)
		if err == nil {
			conn = p
			info = fmt.Sprintf("Replay: %s (%s, recorded %s)", target,
				formatSpeedFactor(c.Replay.Speed), p.Start().Local().Format(captureTimeLayout))
		}
	}

	if err != nil {
		logging.LogConnection(source.String(), target, "open failed")
		return nil, "", err
	}

	logging.LogConnection(source.String(), target, "opened")
	return &loggedConnection{Connection: conn, kind: source.String(), target: target}, info, nil
}

const captureTimeLayout = "2006-01-02 15:04:05"

func openReplay(path string, speed float64) (*capture.Player, error) {
	p, err := capture.Open(path, speed)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	return p, nil
}

func formatSpeedFactor(speed float64) string {
	if speed == 0 {
		return "unpaced"
	}
	return fmt.Sprintf("%gx", speed)
}

// loggedConnection dumps every chunk at debug level and logs the close
type loggedConnection struct {
	Connection
	kind      string
	target    string
	closeOnce sync.Once
	closeErr  error
}

func (l *loggedConnection) Read(p []byte) (int, error) {
	n, err := l.Connection.Read(p)
	if n > 0 {
		logging.LogRawBytes("rx", p[:n])
	}
	return n, err
}

func (l *loggedConnection) Close() error {
	l.closeOnce.Do(func() {
		logging.LogConnection(l.kind, l.target, "closed")
		l.closeErr = l.Connection.Close()
	})
	return l.closeErr
}

// isEndOfStream reports whether err means the source has no more data, as
// opposed to a transport failure.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) || errors.Is(err, capture.ErrPlayerClosed)
}

// recordTo tees conn into a new capture file at path. The returned closer
// flushes the capture.
func recordTo(conn io.Reader, path string) (io.Reader, io.Closer, error) {
	w, err := capture.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create capture %s: %w", path, err)
	}
	logging.Info("Recording capture", zap.String("path", path))
	return io.TeeReader(conn, w), w, nil
}
