package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// ErrInvalidAddress indicates a From or To header could not be parsed.
var ErrInvalidAddress = errors.New("invalid email address")

// Headers are the outer message header fields. Empty fields are omitted.
type Headers struct {
	Subject   string
	From      string
	To        string
	Date      time.Time // zero means no Date header
	MessageID string    // without angle brackets
}

// Message is an HTML body plus the images it references by Content-ID.
type Message struct {
	Headers  Headers
	HTML     string
	Images   *ImageMap
	Boundary string // empty means random
}

// BuildMessage serializes msg as a multipart/related MIME message: one
// text/html part followed by one part per image in ImageMap order. Each image
// part carries Content-ID <KEY> and a Content-Type sniffed from its bytes.
func BuildMessage(msg Message) ([]byte, error) {
	h, err := rootHeader(msg.Headers, msg.Boundary)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	mw, err := message.CreateWriter(&out, h.Header)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if err := writeHTMLPart(mw, msg.HTML); err != nil {
		return nil, err
	}
	for _, key := range msg.Images.Keys() {
		data, _ := msg.Images.Get(key)
		if err := writeImagePart(mw, key, data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return out.Bytes(), nil
}

// EncodeTransport returns the URL-safe base64 form of a serialized message,
// padding kept.
func EncodeTransport(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// rootHeader builds the outer header. Fields are serialized in reverse order
// of insertion, so Content-Type is added first to be written last.
func rootHeader(h Headers, boundary string) (mail.Header, error) {
	var mh mail.Header
	params := map[string]string{"type": "text/html"}
	if boundary != "" {
		params["boundary"] = boundary
	}
	mh.SetContentType("multipart/related", params)
	mh.SetMessageID(h.MessageID)
	if h.Subject != "" {
		mh.SetSubject(h.Subject)
	}
	if h.To != "" {
		to, err := mail.ParseAddressList(h.To)
		if err != nil {
			return mh, fmt.Errorf("%w: To: %v", ErrInvalidAddress, err)
		}
		mh.SetAddressList("To", to)
	}
	if h.From != "" {
		from, err := mail.ParseAddressList(h.From)
		if err != nil {
			return mh, fmt.Errorf("%w: From: %v", ErrInvalidAddress, err)
		}
		mh.SetAddressList("From", from)
	}
	mh.SetDate(h.Date)
	return mh, nil
}

// writeHTMLPart writes the quoted-printable text/html part.
func writeHTMLPart(mw *message.Writer, html string) error {
	var h message.Header
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating HTML part: %w", err)
	}
	if _, err := pw.Write([]byte(html)); err != nil {
		return fmt.Errorf("writing HTML part: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("writing HTML part: %w", err)
	}
	return nil
}

// writeImagePart writes one base64 image part addressable as cid:key.
func writeImagePart(mw *message.Writer, key string, data []byte) error {
	contentType := SniffImageType(data)

	var h message.Header
	h.SetContentDisposition("inline", map[string]string{
		"filename": key + extensionFor(contentType),
	})
	h.Set("Content-ID", "<"+key+">")
	h.Set("Content-Transfer-Encoding", "base64")
	h.SetContentType(contentType, nil)

	pw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating image part %s: %w", key, err)
	}
	if _, err := pw.Write(data); err != nil {
		return fmt.Errorf("writing image part %s: %w", key, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("writing image part %s: %w", key, err)
	}
	return nil
}

// extensionFor returns a filename extension for an image MIME type.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	}
	if sub, ok := strings.CutPrefix(contentType, "image/"); ok && !strings.ContainsAny(sub, "+.-") {
		return "." + sub
	}
	return ".bin"
}
