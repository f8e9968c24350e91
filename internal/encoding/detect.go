package encoding

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const peekLen = 4096

// NewUTF8Reader returns a reader that yields r as UTF-8. A byte order mark
// wins over detection and is stripped. Otherwise the charset is picked the
// same way attachments are labelled.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReaderSize(r, peekLen)

	head, err := br.Peek(peekLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("peeking input: %w", err)
	}

	if len(head) == peekLen {
		head = trimPartialRune(head)
	}

	charset := detectCharset(head)

	var fallback transform.Transformer = unicode.UTF8.NewDecoder()

	if charset != "utf-8" {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("loading charset %s: %w", charset, err)
		}

		fallback = enc.NewDecoder()
	}

	return transform.NewReader(br, unicode.BOMOverride(fallback)), nil
}

// trimPartialRune drops a multi-byte sequence cut off by the peek window.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}

			return b
		}
	}

	return b
}
