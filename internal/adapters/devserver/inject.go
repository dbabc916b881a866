package devserver

import (
	"bytes"

	"golang.org/x/net/html"
)

// injectScript inserts tag before the closing body tag, falling back to the closing head tag and
// then to the end of the document.
func injectScript(doc []byte, tag string) []byte {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset, bodyEnd, headEnd := 0, -1, -1

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		size := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			switch string(name) {
			case "body":
				bodyEnd = offset
			case "head":
				if headEnd < 0 {
					headEnd = offset
				}
			}
		}
		offset += size
	}

	at := len(doc)
	switch {
	case bodyEnd >= 0:
		at = bodyEnd
	case headEnd >= 0:
		at = headEnd
	}

	out := make([]byte, 0, len(doc)+len(tag))
	out = append(out, doc[:at]...)
	out = append(out, tag...)
	return append(out, doc[at:]...)
}
