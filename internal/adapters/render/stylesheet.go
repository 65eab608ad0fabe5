package render

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	cssURLPattern    = regexp.MustCompile(`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^\s"')]*))\s*\)`)
	cssImportPattern = regexp.MustCompile(`(?i)@import\s+(?:"([^"]*)"|'([^']*)')`)
)

// absolutizeStylesheet rewrites relative url() and @import references in a
// fetched stylesheet against the URL it was served from. The sheet is handed to
// weasyprint as a local file, so relative references would otherwise resolve
// against the scratch directory.
func absolutizeStylesheet(body []byte, sheetURL string) []byte {
	base, err := url.Parse(sheetURL)
	if err != nil || !base.IsAbs() {
		return body
	}

	body = cssURLPattern.ReplaceAllFunc(body, func(match []byte) []byte {
		abs, ok := resolveStylesheetRef(base, firstGroup(cssURLPattern.FindSubmatch(match)))
		if !ok {
			return match
		}
		return []byte(`url("` + abs + `")`)
	})
	return cssImportPattern.ReplaceAllFunc(body, func(match []byte) []byte {
		abs, ok := resolveStylesheetRef(base, firstGroup(cssImportPattern.FindSubmatch(match)))
		if !ok {
			return match
		}
		return []byte(`@import "` + abs + `"`)
	})
}

func firstGroup(groups [][]byte) string {
	for _, g := range groups[1:] {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}

// resolveStylesheetRef reports false for references that must stay as written:
// empty, fragment-only, data: and already absolute ones.
func resolveStylesheetRef(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return "", false
	}
	return base.ResolveReference(u).String(), true
}
