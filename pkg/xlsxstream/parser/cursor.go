package parser

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const readBufferSize = 64 * 1024

// newDecoder returns a buffered decoder accepting non-UTF-8 declared parts.
func newDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(bufio.NewReaderSize(r, readBufferSize))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// cursor is a forward-only view over element boundaries of an XML stream.
// It sits on a start element, an end element, or nil once the stream is
// exhausted. Character data, comments and directives are dropped.
type cursor struct {
	dec *xml.Decoder
	tok xml.Token
}

func newCursor(r io.Reader) (*cursor, error) {
	c := &cursor{dec: newDecoder(r)}
	return c, c.next()
}

// next advances to the following element boundary.
func (c *cursor) next() error {
	for {
		tok, err := c.dec.Token()
		if err == io.EOF {
			c.tok = nil
			return nil
		}
		if err != nil {
			c.tok = nil
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			c.tok = t
			return nil
		}
	}
}

// eof reports whether the stream is exhausted.
func (c *cursor) eof() bool {
	return c.tok == nil
}

// start returns the current start element.
func (c *cursor) start() (xml.StartElement, bool) {
	se, ok := c.tok.(xml.StartElement)
	return se, ok
}

// isStartOf reports whether the cursor is on the start of element local.
func (c *cursor) isStartOf(local string) bool {
	se, ok := c.tok.(xml.StartElement)
	return ok && se.Name.Local == local
}

// atEnd reports whether the cursor is on the end of the enclosing element
// (or the stream ended).
func (c *cursor) atEnd() bool {
	if c.tok == nil {
		return true
	}
	_, ok := c.tok.(xml.EndElement)
	return ok
}

// descend moves onto the first child of the current start element. It
// returns false, leaving the cursor after the element, when there is none.
func (c *cursor) descend() (bool, error) {
	if err := c.next(); err != nil {
		return false, err
	}
	if _, ok := c.tok.(xml.EndElement); ok {
		return false, c.next()
	}
	return !c.eof(), nil
}

// ascend leaves the enclosing element when the cursor is on its end.
func (c *cursor) ascend() error {
	return c.next()
}

// skip moves past the current element to its next sibling.
func (c *cursor) skip() error {
	if _, ok := c.tok.(xml.StartElement); ok {
		if err := c.dec.Skip(); err != nil {
			return err
		}
	}
	return c.next()
}

// skipSiblings skips to the end of the enclosing element.
func (c *cursor) skipSiblings() error {
	for !c.atEnd() {
		if err := c.skip(); err != nil {
			return err
		}
	}
	return nil
}

// text reads the character data of the current element and moves past it.
func (c *cursor) text() (string, error) {
	se, _ := c.start()
	var s string
	if err := c.dec.DecodeElement(&s, &se); err != nil {
		return "", err
	}
	return s, c.next()
}

// richText reads a rich-text container (<is>, <si>) and moves past it.
func (c *cursor) richText() (string, error) {
	s, err := readRichText(c.dec)
	if err != nil {
		return s, err
	}
	return s, c.next()
}

// readRichText concatenates the <t> runs of an element whose start tag has
// just been consumed, ignoring phonetic runs.
func readRichText(decoder *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return sb.String(), err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var s string
				if err := decoder.DecodeElement(&s, &t); err != nil {
					return sb.String(), err
				}
				sb.WriteString(s)
			case "rPh", "phoneticPr":
				if err := decoder.Skip(); err != nil {
					return sb.String(), err
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return sb.String(), nil
}

// decodeEscapes expands the _xHHHH_ escapes used for control characters in
// cell text. "_x005F_" escapes a literal underscore sequence.
func decodeEscapes(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		if i+7 <= len(s) && s[i] == '_' && s[i+1] == 'x' && s[i+6] == '_' {
			if code, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
				sb.WriteRune(rune(code))
				i += 7
				continue
			}
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String()
}
