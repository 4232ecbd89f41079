package dataset

// reader.go wraps the raw dataset stream before it reaches encoding/csv:
//
//   - skipBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by spreadsheet exports
//   - utf8Validator rejects input that is not valid UTF-8
//   - countingReader tracks how many bytes were consumed, for logs and metrics
//
// wrapSource applies them in that order.

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after the BOM, if r starts with one.
func skipBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// ErrInvalidUTF8 matches every InvalidUTF8Error.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// InvalidUTF8Error reports the first byte that is not part of a valid UTF-8
// sequence. Offset counts from the start of the data, after any BOM.
type InvalidUTF8Error struct {
	Offset int64
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 at byte %d", e.Offset)
}

// Is lets errors.Is(err, ErrInvalidUTF8) match.
func (e *InvalidUTF8Error) Is(target error) bool {
	return target == ErrInvalidUTF8
}

// utf8Validator passes valid UTF-8 through unchanged and stops with an
// InvalidUTF8Error at the first invalid byte. Product names are the keys of
// the frequency table, so bytes are never rewritten. Runes that do not fit in
// the caller's buffer are carried over to the next Read.
type utf8Validator struct {
	src     *bufio.Reader
	offset  int64
	pending []byte
	err     error
}

func newUTF8Validator(src *bufio.Reader) *utf8Validator {
	return &utf8Validator{src: src, pending: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (v *utf8Validator) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(v.pending) > 0 {
			c := copy(p[n:], v.pending)
			v.pending = v.pending[c:]
			n += c
			continue
		}
		if v.err != nil {
			break
		}

		// Do not block for more input once something is ready to hand back.
		if n > 0 && v.src.Buffered() == 0 {
			break
		}

		r, size, err := v.src.ReadRune()
		if err != nil {
			v.err = err
			break
		}

		if r == utf8.RuneError && size == 1 {
			v.err = &InvalidUTF8Error{Offset: v.offset}
			break
		}
		v.offset += int64(size)

		if size <= len(p)-n {
			utf8.EncodeRune(p[n:], r)
			n += size
			continue
		}

		var buf [utf8.UTFMax]byte
		utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:size])
		v.pending = append(v.pending[:0], buf[c:size]...)
		n += c
	}

	if n > 0 {
		return n, nil
	}
	return 0, v.err
}

// countingReader counts the bytes handed to the CSV parser.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
}

// Read implements io.Reader.
func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// wrapSource strips the BOM first, then validates, then counts.
func wrapSource(r io.Reader) *countingReader {
	return &countingReader{reader: newUTF8Validator(skipBOM(r))}
}
