// Package mailparse extracts body representations and attachments from raw
// RFC 822 message bytes. Parsing is best-effort: a message that cannot be
// parsed as MIME degrades to a plain-text body instead of failing, so a
// single malformed message never aborts an ingestion run.
package mailparse

import (
	"bytes"
	"io"
	"mime"
	"net/mail"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

// Body format classifications.
const (
	FormatText = "text"
	FormatHTML = "html"
	FormatBoth = "both"
)

// InlineImage is an image part referenced from the HTML body via a cid: URL.
type InlineImage struct {
	ContentID string
	MimeType  string
	Content   []byte
}

// Attachment is a regular downloadable attachment part.
type Attachment struct {
	Filename string
	MimeType string
	Content  []byte
}

// Body is the parsed content of one message.
type Body struct {
	Text         string
	HTML         string
	Format       string
	InlineImages []InlineImage
	Attachments  []Attachment
}

// Parse extracts the plain-text body, HTML body, body format and inline
// images from raw message bytes. It never returns an error: unparseable
// input falls back to treating the raw text as a plain body with empty
// inline images.
func Parse(raw []byte) Body {
	body := Body{
		Format:       FormatText,
		InlineImages: []InlineImage{},
	}

	if len(raw) == 0 {
		return body
	}

	r := bytes.NewReader(raw)
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		// Fall back to a bare RFC 822 read; failing that, the raw bytes
		// become the plain-text body.
		r.Seek(0, io.SeekStart)
		if m, mailErr := mail.ReadMessage(r); mailErr == nil {
			b, _ := io.ReadAll(m.Body)
			body.Text = string(b)
		} else {
			body.Text = string(raw)
		}
		return body
	}

	parseEntity(entity, &body)

	switch {
	case body.Text != "" && body.HTML != "":
		body.Format = FormatBoth
	case body.HTML != "":
		body.Format = FormatHTML
	default:
		body.Format = FormatText
	}

	return body
}

// parseEntity recursively walks a message entity tree
func parseEntity(entity *message.Entity, body *Body) {
	mediaType, params, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			parseEntity(part, body)
		}
		return
	}

	disposition, dispParams, _ := parseDisposition(entity.Header.Get("Content-Disposition"))
	contentID := strings.Trim(entity.Header.Get("Content-Id"), "<>")

	// Inline images referenced by cid: from the HTML body
	if contentID != "" && strings.HasPrefix(mediaType, "image/") && disposition != "attachment" {
		content, _ := io.ReadAll(entity.Body)
		if len(content) > 0 {
			body.InlineImages = append(body.InlineImages, InlineImage{
				ContentID: contentID,
				MimeType:  mediaType,
				Content:   content,
			})
		}
		return
	}

	if mediaType == "text/plain" && disposition != "attachment" && body.Text == "" {
		b, _ := io.ReadAll(entity.Body)
		body.Text = string(b)
		return
	}
	if mediaType == "text/html" && disposition != "attachment" && body.HTML == "" {
		b, _ := io.ReadAll(entity.Body)
		body.HTML = string(b)
		return
	}

	// Everything else may be an attachment
	isAttachment := false
	var filename string

	if disposition == "attachment" || (disposition == "inline" && dispParams["filename"] != "") {
		isAttachment = true
		filename = dispParams["filename"]
	}
	if params["name"] != "" {
		isAttachment = true
		if filename == "" {
			filename = params["name"]
		}
	}
	// Non-text parts with content are treated as attachments even without
	// an explicit disposition
	if !isAttachment && mediaType != "" && !strings.HasPrefix(mediaType, "text/") {
		isAttachment = true
	}

	if !isAttachment {
		return
	}

	content, _ := io.ReadAll(entity.Body)
	if len(content) == 0 {
		return
	}

	// Decode MIME encoded-word filenames (e.g. =?utf-8?B?...?=)
	if filename != "" {
		dec := new(mime.WordDecoder)
		if decoded, err := dec.DecodeHeader(filename); err == nil {
			filename = decoded
		}
	}
	if filename == "" {
		filename = defaultFilename(mediaType)
	}

	body.Attachments = append(body.Attachments, Attachment{
		Filename: filename,
		MimeType: mediaType,
		Content:  content,
	})
}

// parseDisposition parses a Content-Disposition header value
func parseDisposition(header string) (string, map[string]string, error) {
	if header == "" {
		return "", map[string]string{}, nil
	}
	dispType, dispParams, err := mime.ParseMediaType(header)
	if err != nil {
		return "", map[string]string{}, err
	}
	return dispType, dispParams, nil
}

// defaultFilename generates a filename for attachments that carry none
func defaultFilename(mediaType string) string {
	ext := ".bin"
	if strings.HasPrefix(mediaType, "image/") {
		ext = "." + strings.TrimPrefix(mediaType, "image/")
	} else if mediaType == "application/pdf" {
		ext = ".pdf"
	}
	return "attachment" + ext
}
