package chat

import (
	"strings"
	"testing"
)

func TestStripExecutableMarkup(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		drops []string
		keeps []string
	}{
		{
			name:  "script block",
			in:    `before <script type="text/javascript">alert(1)</script> after`,
			drops: []string{"<script", "alert(1)"},
			keeps: []string{"before", "after"},
		},
		{
			name:  "iframe block",
			in:    `see <iframe src="http://evil"></iframe> this`,
			drops: []string{"<iframe"},
			keeps: []string{"see", "this"},
		},
		{
			name:  "inline handler",
			in:    `<img src="a.png" onerror="steal()">`,
			drops: []string{"onerror"},
			keeps: []string{`src="a.png"`},
		},
		{
			name:  "javascript url",
			in:    `<a href="javascript:run()">link</a>`,
			drops: []string{"javascript:"},
			keeps: []string{"link"},
		},
		{
			name:  "plain text untouched",
			in:    "2 < 3 and the onion is fine",
			keeps: []string{"2 < 3", "onion"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _ := StripExecutableMarkup(tc.in)
			for _, bad := range tc.drops {
				if strings.Contains(out, bad) {
					t.Fatalf("output %q still contains %q", out, bad)
				}
			}
			for _, good := range tc.keeps {
				if !strings.Contains(out, good) {
					t.Fatalf("output %q lost %q", out, good)
				}
			}
		})
	}
}

func TestStripExecutableMarkupReportsChange(t *testing.T) {
	if _, changed := StripExecutableMarkup("nothing to do"); changed {
		t.Fatalf("changed = true for clean input")
	}
	if _, changed := StripExecutableMarkup("<script>x</script>"); !changed {
		t.Fatalf("changed = false for script input")
	}
}
