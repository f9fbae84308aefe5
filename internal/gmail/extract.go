package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	gmail "google.golang.org/api/gmail/v1"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// HeaderValue returns the value of a header on the message payload, or ""
// when the header is absent. The Gmail API canonicalizes header names, so
// the comparison is exact.
func HeaderValue(m *gmail.Message, name string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// ExtractBody returns the message body as readable plain text. A
// text/plain part anywhere in the MIME tree wins; otherwise the first
// text/html part is converted to text. Runs of blank lines are collapsed
// so multipart boilerplate doesn't dominate the output.
func ExtractBody(m *gmail.Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	body := findPart(m.Payload, "text/plain")
	if body == "" {
		if raw := findPart(m.Payload, "text/html"); raw != "" {
			body = htmlToText(raw)
		}
	}
	if body == "" && m.Payload.Body != nil {
		body = decodeBody(m.Payload.Body.Data)
	}

	body = blankLines.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

// findPart walks the MIME tree depth-first and returns the decoded body
// of the first part with the given MIME type.
func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := findPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodeBody decodes a body payload. Gmail uses URL-safe base64; some
// senders produce unpadded or standard encodings, so those are tried as
// fallbacks before giving up.
func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}

// htmlToText strips markup from an HTML body, keeping only the text
// content. Script and style elements are skipped entirely. Block-ish
// boundaries become newlines so paragraphs stay separated.
func htmlToText(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "tr", "li":
				b.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
	}
}
