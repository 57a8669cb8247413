// Package message implements the wire framing shared by the chat client and
// server: newline-delimited messages with a bounded payload size. A message is
// an immutable byte sequence; anything larger than the configured maximum is
// rejected before it touches the connection, never truncated silently.
package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxSize is the default upper bound on a single message payload in
// bytes, excluding the trailing newline delimiter.
const DefaultMaxSize = 2048

var (
	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum size, on either the read or the write path.
	ErrMessageTooLong = errors.New("message exceeds maximum size")

	// ErrEmbeddedNewline is returned when an outbound payload contains a
	// newline byte. A single send must frame exactly one message; splitting
	// it would break the one-send-one-message ordering guarantee.
	ErrEmbeddedNewline = errors.New("message contains embedded newline")
)

// Read blocks until one complete newline-delimited message is available on r
// and returns its payload without the delimiter. A trailing carriage return is
// stripped so clients speaking CRLF (e.g. telnet) interoperate.
//
// Parameters:
//   - r: The buffered reader wrapping the transport
//   - max: Maximum accepted payload size in bytes; values <= 0 use DefaultMaxSize
//
// Returns:
//   - The message payload, excluding the delimiter
//   - io.EOF on clean peer close with no pending bytes, ErrMessageTooLong if
//     the line exceeds max, or the underlying read error
func Read(r *bufio.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = DefaultMaxSize
	}

	var payload []byte
	for {
		chunk, err := r.ReadSlice('\n')
		payload = append(payload, chunk...)

		// Bound includes the delimiter ("\n" or "\r\n") still present in payload.
		if len(payload) > max+2 {
			return nil, ErrMessageTooLong
		}

		if err == nil {
			break
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if errors.Is(err, io.EOF) && len(payload) > 0 {
			// Peer closed mid-line; deliver what arrived as the final message.
			break
		}

		return nil, err
	}

	trimmed := trimLine(payload)
	if len(trimmed) > max {
		return nil, ErrMessageTooLong
	}

	return trimmed, nil
}

// Write frames payload as a single newline-delimited message and writes it to
// w in one call. Validation happens before any byte is written, so a rejected
// message is never partially transmitted.
//
// Parameters:
//   - w: The transport writer
//   - payload: The message bytes; must not contain '\n'
//   - max: Maximum accepted payload size in bytes; values <= 0 use DefaultMaxSize
//
// Returns:
//   - ErrMessageTooLong or ErrEmbeddedNewline on validation failure, otherwise
//     the result of the underlying write
func Write(w io.Writer, payload []byte, max int) error {
	if err := Validate(payload, max); err != nil {
		return err
	}

	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, payload...)
	framed = append(framed, '\n')

	if _, err := w.Write(framed); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// Validate checks that payload fits within max bytes and contains no newline.
// It performs no I/O.
//
// Parameters:
//   - payload: The message bytes to check
//   - max: Maximum accepted payload size in bytes; values <= 0 use DefaultMaxSize
//
// Returns:
//   - nil if the payload is sendable, ErrMessageTooLong or ErrEmbeddedNewline otherwise
func Validate(payload []byte, max int) error {
	if max <= 0 {
		max = DefaultMaxSize
	}

	if len(payload) > max {
		return ErrMessageTooLong
	}

	if bytes.IndexByte(payload, '\n') != -1 {
		return ErrEmbeddedNewline
	}

	return nil
}

// trimLine strips the trailing "\n" or "\r\n" delimiter from a raw line.
func trimLine(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line
}
