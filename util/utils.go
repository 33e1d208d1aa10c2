package util

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/bwise1/querydesk/internal/model"
	"github.com/google/go-querystring/query"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

func slugify(s string) string {
	var buf bytes.Buffer

	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r):
			buf.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r), r == '_', r == '-':
			buf.WriteRune(r)
		case unicode.IsSpace(r):
			buf.WriteRune('-')
		}
	}

	return buf.String()
}

var titleCaser = cases.Title(language.English)

func title(s string) string {
	return titleCaser.String(s)
}

// truncate cuts s to at most n runes, appending an ellipsis when it had to cut.
func truncate(n int, s string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

var TemplateFuncs = template.FuncMap{
	// Time functions
	"now":        time.Now,
	"timeSince":  time.Since,
	"formatTime": formatTime,

	// String functions
	"uppercase":     strings.ToUpper,
	"lowercase":     strings.ToLower,
	"title":         title,
	"slugify":       slugify,
	"truncate":      truncate,
	"queryTypeName": model.QueryTypeLabel,

	// Slice functions
	"join": strings.Join,
}

// PageParams is the query string of a paginated or filtered listing link.
type PageParams struct {
	Page      int    `url:"page,omitempty"`
	Keywords  string `url:"keywords,omitempty"`
	QueryType string `url:"query_type,omitempty"`
}

// PageURL builds path?params, leaving out empty parameters.
func PageURL(path string, params PageParams) string {
	v, err := query.Values(params)
	if err != nil || len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

// SafeRedirect returns target when it is a local absolute path and fallback
// otherwise, so a login "next" parameter cannot point off-site.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}
