// Package mimeparse turns raw RFC 822 messages into core messages.
package mimeparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/email-onebox/internal/core"
)

// noTextPlaceholder is returned for multipart messages without a text part
const noTextPlaceholder = "[No text content found in multipart message]"

// ParseMessage reads headers and the text body of a raw message
func ParseMessage(r io.Reader) (core.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return core.Message{}, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	var msg core.Message
	msg.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	} else {
		msg.From = mr.Header.Get("From")
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}
	msg.Body = readText(mr)
	return msg, nil
}

// ExtractText returns the text/plain content of a raw message. An
// unparseable message is returned as is.
func ExtractText(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()
	return readText(mr)
}

func readText(mr *mail.Reader) string {
	var text, html strings.Builder
	parts := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep what was read so far.
			break
		}
		parts++

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case contentType == "" || strings.HasPrefix(contentType, "text/plain"):
			text.Write(body)
			text.WriteString("\n")
		case strings.HasPrefix(contentType, "text/html") && html.Len() == 0:
			html.Write(body)
		}
	}

	if text.Len() > 0 {
		return strings.TrimRight(text.String(), "\n")
	}
	if html.Len() > 0 {
		return html.String()
	}
	if parts == 0 {
		return ""
	}
	return noTextPlaceholder
}
