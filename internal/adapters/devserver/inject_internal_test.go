package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInjectScript(t *testing.T) {
	const tag = "<script></script>"

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "before closing body",
			doc:  "<html><head></head><body><p>x</p></body></html>",
			want: "<html><head></head><body><p>x</p><script></script></body></html>",
		},
		{
			name: "last closing body wins",
			doc:  "<body><template></body></template></body>",
			want: "<body><template></body></template><script></script></body>",
		},
		{
			name: "closing head without body",
			doc:  "<html><head><title>t</title></head></html>",
			want: "<html><head><title>t</title><script></script></head></html>",
		},
		{
			name: "fragment",
			doc:  "<p>partial</p>",
			want: "<p>partial</p><script></script>",
		},
		{
			name: "uppercase tag",
			doc:  "<BODY>x</BODY>",
			want: "<BODY>x<script></script></BODY>",
		},
		{
			name: "body text inside script is ignored",
			doc:  `<body><script>var s = "</body>";</script></body>`,
			want: `<body><script>var s = "</body>";</script><script></script></body>`,
		},
		{
			name: "empty",
			doc:  "",
			want: "<script></script>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(injectScript([]byte(tt.doc), tag)))
		})
	}
}
