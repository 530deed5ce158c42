package diagram

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"io"
	"net/url"
	"strings"
)

// DecodeContent decodes a compressed diagram page payload into plain markup.
//
// Draw.io compresses page content as: percent-encode, raw deflate (no zlib
// header), base64, percent-encode. Decoding reverses the pipeline. The
// container format mixes compressed and literal payloads depending on the
// producing application, so any stage failure returns the input unmodified
// rather than an error: content that does not decode is treated as plaintext.
func DecodeContent(encoded string) string {
	unescaped, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}

	raw, err := base64.StdEncoding.DecodeString(stripSpace(unescaped))
	if err != nil {
		return encoded
	}

	inflated, err := io.ReadAll(flate.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return encoded
	}

	markup, err := url.PathUnescape(string(inflated))
	if err != nil {
		return encoded
	}
	return markup
}

// EncodeContent is the inverse pipeline: percent-encode, deflate, base64,
// percent-encode. Used when writing compressed containers and by round-trip
// tests.
func EncodeContent(markup string) (string, error) {
	escaped := url.PathEscape(markup)

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(escaped)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return url.PathEscape(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// stripSpace removes whitespace that editors wrap base64 payloads with.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
