// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package logwindow

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultLines is the line budget when none (or a non-positive one)
	// is requested.
	DefaultLines = 200

	// MaxLines caps the line budget.
	MaxLines = 1000

	tailWindow      = 64 << 10
	tailRetryWindow = 128 << 10

	// maxHeadLineBytes truncates individual lines on head reads.
	maxHeadLineBytes = 64 << 10
)

// Direction selects which end of the file to read.
type Direction string

const (
	Head Direction = "head"
	Tail Direction = "tail"
)

// Kind names which of a process's log streams is read.
type Kind string

const (
	Combined Kind = "combined"
	Output   Kind = "output"
	Error    Kind = "error"
)

// Status messages for files with nothing to read.
const (
	MessageNotFound = "Log file not found or empty"
	MessageEmpty    = "Log file is empty"
)

// Query describes one log read.
type Query struct {
	Path      string
	Direction Direction
	Kind      Kind
	MaxLines  int
}

// Result is the outcome of a read. Lines run oldest to newest. Message
// is set only when the file was absent or empty.
type Result struct {
	Lines     []string
	Direction Direction
	Kind      Kind
	Path      string
	Message   string
}

// Count returns the number of lines returned.
func (r *Result) Count() int { return len(r.Lines) }

// ClampLines normalizes a requested line budget: values below 1 become
// DefaultLines and values above MaxLines become MaxLines.
func ClampLines(requested int) int {
	if requested < 1 {
		return DefaultLines
	}
	return min(requested, MaxLines)
}

// ParseQuery builds a Query (without Path) from the raw lines, from and
// type request parameters. Unparseable or missing lines fall back to
// DefaultLines; from defaults to tail; type defaults to combined.
// Unknown direction or kind values are rejected.
func ParseQuery(lines, from, kind string) (Query, error) {
	query := Query{
		Direction: Tail,
		Kind:      Combined,
		MaxLines:  DefaultLines,
	}

	if lines != "" {
		if requested, err := strconv.Atoi(strings.TrimSpace(lines)); err == nil {
			query.MaxLines = ClampLines(requested)
		}
	}

	switch Direction(from) {
	case "":
	case Head, Tail:
		query.Direction = Direction(from)
	default:
		return query, fmt.Errorf("from must be %q or %q, got %q", Head, Tail, from)
	}

	switch Kind(kind) {
	case "":
	case Combined, Output, Error:
		query.Kind = Kind(kind)
	default:
		return query, fmt.Errorf("type must be one of %q, %q, %q, got %q", Combined, Output, Error, kind)
	}

	return query, nil
}

// Read executes query. An absent, non-regular or empty file yields an
// empty Result with Message set, not an error. Errors are reserved for
// I/O failures on a file that exists.
func Read(query Query) (*Result, error) {
	result := &Result{
		Lines:     []string{},
		Direction: query.Direction,
		Kind:      query.Kind,
		Path:      query.Path,
	}
	maxLines := ClampLines(query.MaxLines)

	if query.Path == "" {
		result.Message = MessageNotFound
		return result, nil
	}

	file, err := os.Open(query.Path)
	if errors.Is(err, fs.ErrNotExist) {
		result.Message = MessageNotFound
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if !info.Mode().IsRegular() {
		result.Message = MessageNotFound
		return result, nil
	}
	if info.Size() == 0 {
		result.Message = MessageEmpty
		return result, nil
	}

	if query.Direction == Head {
		result.Lines, err = readHead(file, maxLines)
	} else {
		result.Lines, err = readTail(file, info.Size(), maxLines)
	}
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return result, nil
}

// readHead returns up to maxLines lines from the start of reader,
// blank lines included, with line terminators removed.
func readHead(reader io.Reader, maxLines int) ([]string, error) {
	buffered := bufio.NewReaderSize(reader, 32<<10)
	lines := make([]string, 0, min(maxLines, 64))

	for len(lines) < maxLines {
		line, err := readCappedLine(buffered)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// readCappedLine reads one line, keeping at most maxHeadLineBytes of it
// and discarding the rest. Returns io.EOF only when no bytes remain.
func readCappedLine(reader *bufio.Reader) (string, error) {
	var line []byte
	for {
		fragment, err := reader.ReadSlice('\n')
		if room := maxHeadLineBytes - len(line); room > 0 {
			line = append(line, fragment[:min(len(fragment), room)]...)
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF:
			if len(line) == 0 {
				return "", io.EOF
			}
			return trimTerminator(line), nil
		case err != nil:
			return "", err
		default:
			return trimTerminator(line), nil
		}
	}
}

func trimTerminator(line []byte) string {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return string(line)
}

// readTail returns the last maxLines non-blank lines of a file of the
// given size. The file may shrink after size was taken (a log flush),
// so only the bytes actually read are split.
func readTail(file io.ReaderAt, size int64, maxLines int) ([]string, error) {
	windowSize := min(int64(tailWindow), size)
	position := size - windowSize

	region := make([]byte, windowSize)
	n, err := file.ReadAt(region, position)
	if err != nil && err != io.EOF {
		return nil, err
	}
	shrunk := int64(n) < windowSize
	region = region[:n]

	partial, err := startsMidLine(file, position)
	if err != nil {
		return nil, err
	}
	lines := splitNonBlank(region, partial)

	if len(lines) < maxLines && position > 0 && !shrunk {
		retrySize := min(int64(tailRetryWindow), position)
		retryPosition := position - retrySize

		combined := make([]byte, retrySize+windowSize)
		n, err := file.ReadAt(combined[:retrySize], retryPosition)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if int64(n) == retrySize {
			copy(combined[retrySize:], region)

			partial, err := startsMidLine(file, retryPosition)
			if err != nil {
				return nil, err
			}
			lines = splitNonBlank(combined, partial)
		}
	}

	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines, nil
}

// startsMidLine reports whether a read beginning at position cuts a
// line, which is the case unless position is 0 or follows a newline.
func startsMidLine(file io.ReaderAt, position int64) (bool, error) {
	if position == 0 {
		return false, nil
	}
	var previous [1]byte
	if _, err := file.ReadAt(previous[:], position-1); err != nil {
		if err == io.EOF {
			// Truncated below position; nothing was read past it.
			return false, nil
		}
		return false, err
	}
	return previous[0] != '\n', nil
}

// splitNonBlank splits data into lines, drops the first one when it is
// a fragment, and drops lines that are empty or whitespace.
func splitNonBlank(data []byte, dropFirst bool) []string {
	segments := bytes.Split(data, []byte("\n"))
	if dropFirst && len(segments) > 0 {
		segments = segments[1:]
	}

	lines := make([]string, 0, len(segments))
	for _, segment := range segments {
		if len(bytes.TrimSpace(segment)) == 0 {
			continue
		}
		lines = append(lines, string(bytes.TrimSuffix(segment, []byte("\r"))))
	}
	return lines
}
