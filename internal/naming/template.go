// SPDX-License-Identifier: MIT

package naming

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultPattern is the built-in naming pattern. An example file name it
// produces: "20180211 莫寒口袋直播 一人吃火锅的人生成就(๑˙ー˙๑).mp4".
const DefaultPattern = "%(date_c)s %(name)s口袋%(type)s %(title)s.%(ext)s"

// Render expands the printf-style naming pattern with the given
// replacement values. Recognized placeholders take the form %(key)s;
// "%%" escapes a literal percent sign. Unknown placeholders and stray
// percent signs are errors so a bad pattern is caught at config load,
// not mid-run.
func Render(pattern string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			b.WriteByte('%')
			i += 2
			continue
		}
		if i+1 >= len(pattern) || pattern[i+1] != '(' {
			return "", fmt.Errorf("naming: stray %% at offset %d in pattern %q", i, pattern)
		}
		end := strings.IndexByte(pattern[i+2:], ')')
		if end < 0 {
			return "", fmt.Errorf("naming: unterminated placeholder in pattern %q", pattern)
		}
		key := pattern[i+2 : i+2+end]
		rest := i + 2 + end + 1
		if rest >= len(pattern) || pattern[rest] != 's' {
			return "", fmt.Errorf("naming: placeholder %%(%s) must end with 's' in pattern %q", key, pattern)
		}
		val, ok := values[key]
		if !ok {
			return "", fmt.Errorf("naming: unknown placeholder %%(%s)s in pattern %q", key, pattern)
		}
		b.WriteString(val)
		i = rest + 1
	}
	return b.String(), nil
}

// ExtensionFromURL extracts the file extension (without the leading dot)
// from a URL's path component.
func ExtensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	return strings.TrimPrefix(ext, ".")
}

// OutputExtension maps a source extension to the output extension: the
// segmented-stream format is never the final file, so m3u8 becomes mp4;
// everything else mirrors the source.
func OutputExtension(srcExt string) string {
	if strings.TrimPrefix(srcExt, ".") == "m3u8" {
		return "mp4"
	}
	return strings.TrimPrefix(srcExt, ".")
}
