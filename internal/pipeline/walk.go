package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
)

// ErrMalformedMessage indicates Walk could not parse a message.
var ErrMalformedMessage = errors.New("malformed message")

// Part is one node of a parsed message. The root has no body; leaf bodies
// are transfer-decoded.
type Part struct {
	Header message.Header
	Body   []byte
}

// ContentType returns the media type without parameters.
func (p Part) ContentType() string {
	mt, _, err := p.Header.ContentType()
	if err != nil {
		return ""
	}
	return mt
}

// Walk parses a serialized message and returns its parts depth-first, root
// first. A message from BuildMessage with k images yields k+2 parts.
func Walk(raw []byte) ([]Part, error) {
	root, err := message.Read(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var parts []Part
	err = root.Walk(func(_ []int, e *message.Entity, err error) error {
		if err != nil {
			return err
		}
		p := Part{Header: e.Header}
		if mt, _, _ := e.Header.ContentType(); !strings.HasPrefix(mt, "multipart/") {
			if p.Body, err = io.ReadAll(e.Body); err != nil {
				return err
			}
		}
		parts = append(parts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return parts, nil
}
