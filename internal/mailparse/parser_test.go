package mailparse

import (
	"strings"
	"testing"
)

const crlf = "\r\n"

func msg(lines ...string) []byte {
	return []byte(strings.Join(lines, crlf) + crlf)
}

func TestParsePlainText(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"To: bob@example.com",
		"Subject: hello",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Just a plain body.",
	)

	body := Parse(raw)
	if body.Format != FormatText {
		t.Errorf("Format = %q, want %q", body.Format, FormatText)
	}
	if !strings.Contains(body.Text, "Just a plain body.") {
		t.Errorf("Text = %q, want plain body", body.Text)
	}
	if body.HTML != "" {
		t.Errorf("HTML = %q, want empty", body.HTML)
	}
	if len(body.InlineImages) != 0 || len(body.Attachments) != 0 {
		t.Error("plain message should carry no images or attachments")
	}
}

func TestParseMultipartAlternative(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"Subject: both bodies",
		`Content-Type: multipart/alternative; boundary="BOUND"`,
		"",
		"--BOUND",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"text version",
		"--BOUND",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--BOUND--",
	)

	body := Parse(raw)
	if body.Format != FormatBoth {
		t.Errorf("Format = %q, want %q", body.Format, FormatBoth)
	}
	if !strings.Contains(body.Text, "text version") {
		t.Errorf("Text = %q", body.Text)
	}
	if !strings.Contains(body.HTML, "<p>html version</p>") {
		t.Errorf("HTML = %q", body.HTML)
	}
}

func TestParseHTMLOnly(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"Subject: html only",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<h1>hi</h1>",
	)

	body := Parse(raw)
	if body.Format != FormatHTML {
		t.Errorf("Format = %q, want %q", body.Format, FormatHTML)
	}
	if !strings.Contains(body.HTML, "<h1>hi</h1>") {
		t.Errorf("HTML = %q", body.HTML)
	}
}

func TestParseInlineImage(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"Subject: with image",
		`Content-Type: multipart/related; boundary="REL"`,
		"",
		"--REL",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<img src="cid:logo123">`,
		"--REL",
		"Content-Type: image/png",
		"Content-Id: <logo123>",
		"",
		"PNGBYTES",
		"--REL--",
	)

	body := Parse(raw)
	if len(body.InlineImages) != 1 {
		t.Fatalf("InlineImages = %d, want 1", len(body.InlineImages))
	}
	img := body.InlineImages[0]
	if img.ContentID != "logo123" {
		t.Errorf("ContentID = %q, want logo123", img.ContentID)
	}
	if img.MimeType != "image/png" {
		t.Errorf("MimeType = %q, want image/png", img.MimeType)
	}
	if len(body.Attachments) != 0 {
		t.Error("inline image must not be classified as attachment")
	}
}

func TestParseImageWithAttachmentDisposition(t *testing.T) {
	// An image explicitly marked as attachment is an attachment even with
	// a Content-Id
	raw := msg(
		"From: alice@example.com",
		"Subject: attached image",
		`Content-Type: multipart/mixed; boundary="MIX"`,
		"",
		"--MIX",
		"Content-Type: text/plain",
		"",
		"see attached",
		"--MIX",
		"Content-Type: image/jpeg",
		"Content-Id: <photo1>",
		`Content-Disposition: attachment; filename="photo.jpg"`,
		"",
		"JPEGBYTES",
		"--MIX--",
	)

	body := Parse(raw)
	if len(body.InlineImages) != 0 {
		t.Errorf("InlineImages = %d, want 0", len(body.InlineImages))
	}
	if len(body.Attachments) != 1 {
		t.Fatalf("Attachments = %d, want 1", len(body.Attachments))
	}
	if body.Attachments[0].Filename != "photo.jpg" {
		t.Errorf("Filename = %q, want photo.jpg", body.Attachments[0].Filename)
	}
}

func TestParseAttachmentWithoutFilename(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"Subject: report",
		`Content-Type: multipart/mixed; boundary="MIX"`,
		"",
		"--MIX",
		"Content-Type: text/plain",
		"",
		"report attached",
		"--MIX",
		"Content-Type: application/pdf",
		"Content-Disposition: attachment",
		"",
		"PDFBYTES",
		"--MIX--",
	)

	body := Parse(raw)
	if len(body.Attachments) != 1 {
		t.Fatalf("Attachments = %d, want 1", len(body.Attachments))
	}
	if body.Attachments[0].Filename != "attachment.pdf" {
		t.Errorf("Filename = %q, want attachment.pdf", body.Attachments[0].Filename)
	}
}

func TestParseFallbackOnGarbage(t *testing.T) {
	raw := []byte("this is not\x00a mime message at all")

	body := Parse(raw)
	if body.Format != FormatText {
		t.Errorf("Format = %q, want %q", body.Format, FormatText)
	}
	if body.Text == "" {
		t.Error("fallback should keep the raw bytes as text")
	}
	if body.InlineImages == nil {
		t.Error("InlineImages must be non-nil even on fallback")
	}
}

func TestParseEmpty(t *testing.T) {
	body := Parse(nil)
	if body.Format != FormatText || body.Text != "" || body.HTML != "" {
		t.Errorf("empty input should yield an empty text body, got %+v", body)
	}
}

func TestParseFirstTextPartWins(t *testing.T) {
	raw := msg(
		"From: alice@example.com",
		"Subject: two texts",
		`Content-Type: multipart/mixed; boundary="MIX"`,
		"",
		"--MIX",
		"Content-Type: text/plain",
		"",
		"first part",
		"--MIX",
		"Content-Type: text/plain",
		"",
		"second part",
		"--MIX--",
	)

	body := Parse(raw)
	if !strings.Contains(body.Text, "first part") || strings.Contains(body.Text, "second part") {
		t.Errorf("Text = %q, want only the first text part", body.Text)
	}
}
