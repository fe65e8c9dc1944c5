// Package statement parses the text members of an exported statement
// archive: the four-section file layout, the label row, the free-text
// header and footer, and the comma-delimited body rows.
package statement

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// The two literal lines that partition a statement file. Content and
// length must match exactly.
const (
	HeaderDelimiter = "---------------------------------交易记录明细列表------------------------------------"
	FooterDelimiter = "------------------------------------------------------------------------------------"
)

// ErrDelimitersNotFound is returned when a stream ends before the footer
// section was reached: the two required delimiters were not both found in
// order, and nothing in the file can be trusted.
var ErrDelimitersNotFound = errors.New("statement delimiters not found in order")

type section int

const (
	sectionHeader section = iota
	sectionLabels
	sectionBody
	sectionFooter
)

// LineHandler receives the lines of each statement section in stream
// order. The single label line following the header delimiter is consumed
// through LabelLine and never reaches BodyLine. Returning an error stops
// the scan immediately.
type LineHandler interface {
	HeaderLine(line string) error
	LabelLine(line string) error
	BodyLine(line string) error
	FooterLine(line string) error
}

// Scan drives handler over one decoded statement stream. It owns no
// cross-row state beyond the section cursor; everything contextual lives
// in the handler.
func Scan(r io.Reader, handler LineHandler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	state := sectionHeader
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch state {
		case sectionHeader:
			if line == HeaderDelimiter {
				state = sectionLabels
				continue
			}
			if err := handler.HeaderLine(line); err != nil {
				return err
			}
		case sectionLabels:
			if err := handler.LabelLine(line); err != nil {
				return err
			}
			state = sectionBody
		case sectionBody:
			if line == FooterDelimiter {
				state = sectionFooter
				continue
			}
			if err := handler.BodyLine(line); err != nil {
				return err
			}
		case sectionFooter:
			if err := handler.FooterLine(line); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading statement stream: %w", err)
	}
	if state != sectionFooter {
		return ErrDelimitersNotFound
	}
	return nil
}
