package htmlutil

import (
	"strings"
	"testing"
)

func TestFlattenHTML_StripsBoilerplate(t *testing.T) {
	t.Parallel()
	in := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
	<body><nav>Home | About</nav>
	<h1>Pancakes</h1>
	<!-- tracking pixel -->
	<ul><li>2 eggs</li><li>1 cup flour</li></ul>
	<footer>© example.com</footer></body></html>`

	out := FlattenHTML(in)

	for _, banned := range []string{"alert(1)", "color:red", "Home | About", "©"} {
		if strings.Contains(out, banned) {
			t.Errorf("output still contains %q:\n%s", banned, out)
		}
	}
	for _, wanted := range []string{"Pancakes", "2 eggs", "1 cup flour"} {
		if !strings.Contains(out, wanted) {
			t.Errorf("output missing %q:\n%s", wanted, out)
		}
	}
}

func TestFlattenHTML_BlockTagsBecomeNewlines(t *testing.T) {
	t.Parallel()
	out := FlattenHTML(`<ol><li>Mix</li><li>Fry</li><li>Serve</li></ol>`)
	lines := strings.Split(out, "\n")
	var steps []string
	for _, l := range lines {
		if l != "" {
			steps = append(steps, l)
		}
	}
	if len(steps) != 3 || steps[0] != "Mix" || steps[2] != "Serve" {
		t.Errorf("expected three separated steps, got %q", out)
	}
}

func TestFlattenHTML_DecodesEntities(t *testing.T) {
	t.Parallel()
	out := FlattenHTML(`<p>Salt &amp; pepper &mdash; to taste</p>`)
	if !strings.Contains(out, "Salt & pepper") {
		t.Errorf("entities not decoded: %q", out)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := Truncate("abcdef", 4); got != "abcd…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("short input must pass through, got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("zero budget should yield empty, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()
	out := collapseWhitespace("  a   b\t c \n\n\n\n d ")
	if out != "a b c\n\nd" {
		t.Errorf("collapseWhitespace = %q", out)
	}
}
