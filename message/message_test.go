package message

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_Read_RoundTrip(t *testing.T) {
	var buf bytes.Buffer

	sent := [][]byte{
		[]byte("hello"),
		[]byte("how are you"),
		[]byte(""),
		[]byte("bye"),
	}

	for _, payload := range sent {
		require.NoError(t, Write(&buf, payload, 0))
	}

	reader := bufio.NewReader(&buf)
	for _, want := range sent {
		got, err := Read(reader, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Read(reader, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWrite_Validation(t *testing.T) {
	t.Run("too long is rejected before any byte is written", func(t *testing.T) {
		var buf bytes.Buffer
		payload := bytes.Repeat([]byte("a"), DefaultMaxSize+1)

		err := Write(&buf, payload, 0)
		assert.ErrorIs(t, err, ErrMessageTooLong)
		assert.Zero(t, buf.Len())
	})

	t.Run("embedded newline is rejected", func(t *testing.T) {
		var buf bytes.Buffer

		err := Write(&buf, []byte("two\nlines"), 0)
		assert.ErrorIs(t, err, ErrEmbeddedNewline)
		assert.Zero(t, buf.Len())
	})

	t.Run("payload at the bound is accepted", func(t *testing.T) {
		var buf bytes.Buffer
		payload := bytes.Repeat([]byte("a"), 16)

		require.NoError(t, Write(&buf, payload, 16))
		assert.Equal(t, 17, buf.Len())
	})

	t.Run("custom bound is enforced", func(t *testing.T) {
		var buf bytes.Buffer

		err := Write(&buf, []byte("12345"), 4)
		assert.ErrorIs(t, err, ErrMessageTooLong)
	})
}

func TestRead_TooLong(t *testing.T) {
	line := strings.Repeat("x", 100) + "\n"
	reader := bufio.NewReaderSize(strings.NewReader(line), 16)

	_, err := Read(reader, 50)
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestRead_PartialFinalLine(t *testing.T) {
	// Peer closed mid-line; the partial payload is still delivered.
	reader := bufio.NewReader(strings.NewReader("unterminated"))

	got, err := Read(reader, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("unterminated"), got)

	_, err = Read(reader, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRead_CRLF(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("hello\r\nworld\r\n"))

	got, err := Read(reader, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	got, err = Read(reader, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)
}

func TestRead_SpansBufferedChunks(t *testing.T) {
	// Message longer than the bufio buffer must be reassembled intact.
	payload := strings.Repeat("abc", 100)
	reader := bufio.NewReaderSize(strings.NewReader(payload+"\n"), 16)

	got, err := Read(reader, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte(payload), got)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]byte("ok"), 0))
	assert.ErrorIs(t, Validate(bytes.Repeat([]byte("a"), DefaultMaxSize+1), 0), ErrMessageTooLong)
	assert.ErrorIs(t, Validate([]byte("a\nb"), 0), ErrEmbeddedNewline)
}
