package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"fixforge-client/pkg/models"
)

// Form field names expected by POST /bugs/submit.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldSeverity     = "severity"
	FieldClientType   = "clientType"
	FieldTags         = "tags"
	FieldUserID       = "user_id"
	FieldScreenshot   = "screenshot"
	FieldCode         = "code"
	FieldCodeLanguage = "code_language"
)

// EncodeDraft writes the draft as multipart/form-data and returns the body
// with its content type. Optional fields are left out when empty.
func EncodeDraft(d models.BugReportDraft) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := [][2]string{
		{FieldTitle, d.Title},
		{FieldDescription, d.Description},
		{FieldSeverity, string(d.Severity)},
		{FieldClientType, string(d.ClientType)},
		{FieldTags, d.Tags()},
	}
	if d.UserID != "" {
		fields = append(fields, [2]string{FieldUserID, d.UserID})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	if d.Screenshot != nil {
		if err := writeScreenshot(mw, d.Screenshot); err != nil {
			return nil, "", err
		}
	}

	if d.HasCode() {
		lang := d.CodeLanguage
		if lang == "" {
			lang = models.DefaultCodeLanguage
		}
		if err := mw.WriteField(FieldCode, d.Code); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", FieldCode, err)
		}
		if err := mw.WriteField(FieldCodeLanguage, lang); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", FieldCodeLanguage, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeScreenshot(mw *multipart.Writer, s *models.Screenshot) error {
	name := s.Name
	if name == "" {
		name = "screenshot"
	}
	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldScreenshot, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create screenshot part: %w", err)
	}
	if _, err := part.Write(s.Data); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
