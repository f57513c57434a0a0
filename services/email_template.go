package services

import (
	"fmt"
	"html/template"
	"os"
	"strings"
)

type emailMetaItem struct {
	Label string
	Value string
}

// buildEmailTemplate renders the single-card HTML layout used by every
// workflow mail.
func buildEmailTemplate(subject string, paragraphs []string, meta []emailMetaItem, buttonText, buttonURL string) string {
	var content strings.Builder
	for _, paragraph := range paragraphs {
		trimmed := strings.TrimSpace(paragraph)
		if trimmed == "" {
			continue
		}
		escaped := template.HTMLEscapeString(trimmed)
		escaped = strings.ReplaceAll(strings.ReplaceAll(escaped, "\r\n", "\n"), "\n", "<br />")
		content.WriteString(`<p style="margin:0 0 18px 0;line-height:1.7;word-break:break-word;">`)
		content.WriteString(escaped)
		content.WriteString(`</p>`)
	}

	metaSection := ""
	var rows []emailMetaItem
	for _, item := range meta {
		if strings.TrimSpace(item.Label) != "" && strings.TrimSpace(item.Value) != "" {
			rows = append(rows, item)
		}
	}
	if len(rows) > 0 {
		var mb strings.Builder
		mb.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="margin:0 0 24px 0;border:1px solid #e5e7eb;border-radius:12px;background-color:#f9fafb;"><tbody>`)
		for i, row := range rows {
			border := "border-bottom:1px solid #e5e7eb;"
			if i == len(rows)-1 {
				border = ""
			}
			mb.WriteString(fmt.Sprintf(`<tr><td style="padding:12px 16px;font-size:13px;color:#6b7280;width:38%%;%s">%s</td><td style="padding:12px 16px;font-size:15px;color:#111827;font-weight:600;%s">%s</td></tr>`,
				border, template.HTMLEscapeString(row.Label), border, template.HTMLEscapeString(row.Value)))
		}
		mb.WriteString(`</tbody></table>`)
		metaSection = mb.String()
	}

	buttonSection := ""
	if strings.TrimSpace(buttonText) != "" && strings.TrimSpace(buttonURL) != "" {
		buttonSection = fmt.Sprintf(`<div style="text-align:center;margin:12px 0 24px 0;"><a href="%s" style="display:inline-block;padding:12px 28px;background-color:#2563eb;color:#ffffff;text-decoration:none;border-radius:999px;font-weight:600;">%s</a></div>`,
			template.HTMLEscapeString(buttonURL), template.HTMLEscapeString(buttonText))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;padding:24px 20px;">
<div style="background-color:#ffffff;border:1px solid #e5e7eb;border-radius:12px;padding:24px 24px 28px 24px;">
%s
<h1 style="margin:18px 0 0 0;font-size:22px;font-weight:700;color:#111827;line-height:1.35;text-align:center;">%s</h1>
<div style="margin-top:20px;color:#1f2937;font-size:16px;line-height:1.75;">
%s
</div>
%s
%s
</div>
</div>
</body>
</html>`, template.HTMLEscapeString(subject), emailLogoHTML(), template.HTMLEscapeString(subject), content.String(), metaSection, buttonSection)
}

// emailLogoHTML renders EMAIL_LOGO_URLS (comma or semicolon separated).
func emailLogoHTML() string {
	urls := parseLogoList(os.Getenv("EMAIL_LOGO_URLS"))
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div style="text-align:center;margin:0 auto 18px auto;">`)
	for _, url := range urls {
		b.WriteString(fmt.Sprintf(`<img src="%s" alt="" style="display:inline-block;margin:0 12px;height:64px;width:auto;" />`, template.HTMLEscapeString(url)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func parseLogoList(raw string) []string {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		switch r {
		case ',', ';', '\n', '\r':
			return true
		}
		return false
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
