package encoding

import (
	"bufio"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

const sniffLen = 512

var latinCharsets = map[string]bool{
	"windows-1252": true,
	"windows-1254": true,
	"iso-8859-15":  true,
	"utf-16le":     true,
	"utf-16be":     true,
}

// DetectContentType returns the MIME type of an attachment from its name and
// first bytes. Text types carry a charset parameter. The returned reader yields
// the full content, including the bytes that were inspected.
func DetectContentType(name string, r io.Reader) (string, io.Reader) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = http.DetectContentType(head)
	}

	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "application/octet-stream", br
	}

	// extension tables and the sniffer both assume utf-8 for text
	if !strings.HasPrefix(mediaType, "text/") {
		return ct, br
	}

	return mime.FormatMediaType(mediaType, map[string]string{"charset": detectCharset(head)}), br
}

// detectCharset names the charset of head in its WHATWG form.
func detectCharset(head []byte) string {
	if utf8.Valid(head) {
		return "utf-8"
	}

	result, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil {
		return "windows-1252"
	}

	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return "windows-1252"
	}

	canonical, err := htmlindex.Name(enc)
	if err != nil {
		return "windows-1252"
	}

	// exports and notes are Spanish text; short samples get misread as cyrillic or cjk
	if !latinCharsets[canonical] {
		return "windows-1252"
	}

	return canonical
}
