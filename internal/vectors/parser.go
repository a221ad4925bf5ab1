// Package vectors reads signing test vectors and replays them through the
// two-party pipeline.
//
// A vector file is a sequence of records:
//
//	TEST = 1
//	K1 = 0a...
//	SIG_S = 3d...
//	RESULT = 0
//
// TEST starts a record, RESULT ends it. Every other line is a hex field.
// Blank lines and lines starting with '#' are skipped.
package vectors

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned for lines the parser cannot read.
var ErrMalformed = errors.New("vectors: malformed input")

// maxLine fits a 4096-bit value in hex with room to spare.
const maxLine = 64 * 1024

// Record is one test vector.
type Record struct {
	Test   int
	Fields map[string][]byte
	// Result is 0 when SIG_S must match and 1 when it must not.
	Result int
	// Line is where the record started, for error messages.
	Line int
}

// Has reports whether the record carries key.
func (r *Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Parse reads every record from in.
func Parse(in io.Reader) ([]*Record, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 4096), maxLine)

	var (
		records []*Record
		cur     *Record
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing '='", ErrMalformed, lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "TEST":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: test number %q", ErrMalformed, lineNo, value)
			}
			cur = &Record{Test: n, Fields: make(map[string][]byte), Line: lineNo}
		case "RESULT":
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: RESULT outside a record", ErrMalformed, lineNo)
			}
			n, err := strconv.Atoi(value)
			if err != nil || (n != 0 && n != 1) {
				return nil, fmt.Errorf("%w: line %d: result must be 0 or 1, got %q", ErrMalformed, lineNo, value)
			}
			cur.Result = n
			records = append(records, cur)
			cur = nil
		default:
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: field %s outside a record", ErrMalformed, lineNo, key)
			}
			b, err := hex.DecodeString(value)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: field %s: %v", ErrMalformed, lineNo, key, err)
			}
			cur.Fields[key] = b
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: test %d has no RESULT line", ErrMalformed, cur.Test)
	}
	return records, nil
}
