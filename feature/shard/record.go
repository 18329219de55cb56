package shard

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"corpus-auditor/core/utils"

	"github.com/goccy/go-json"
)

var (
	errMalformed = errors.New("malformed JSON record")
	errNoID      = errors.New("record has no usable id")
)

// ExtractID returns the top-level "id" field of a JSON object line. The key
// must match exactly; "ID" or "Id" is not an id. The field may hold a string
// of decimal digits or a bare integer. Other values are kept raw and not
// decoded.
func ExtractID(line []byte) (uint32, error) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(line, &rec); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	raw := bytes.TrimSpace(rec["id"])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errNoID
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", errNoID, err)
		}
		raw = []byte(s)
	}
	id, err := utils.ParseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNoID, err)
	}
	return id, nil
}

// ValidateRecord checks that line is well-formed UTF-8 JSON and returns its id.
func ValidateRecord(line []byte) (uint32, error) {
	if !utf8.Valid(line) || !json.Valid(line) {
		return 0, errMalformed
	}
	return ExtractID(line)
}

// lineReader yields newline-terminated lines without the terminator. The
// returned slice is reused by the next call.
type lineReader struct {
	br   *bufio.Reader
	buf  []byte
	line int64
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 256*1024)}
}

func (l *lineReader) next() ([]byte, bool, error) {
	l.buf = l.buf[:0]
	for {
		chunk, err := l.br.ReadSlice('\n')
		l.buf = append(l.buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, false, err
		}
		if len(l.buf) == 0 {
			return nil, false, nil
		}
		l.line++
		return bytes.TrimRight(l.buf, "\r\n"), true, nil
	}
}
