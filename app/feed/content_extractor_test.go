package feed

import (
	"strings"
	"testing"
)

const articlePage = `
<!DOCTYPE html>
<html>
<head>
	<title>Central bank holds rates</title>
	<script>var tracking = "do-not-extract";</script>
</head>
<body>
	<header>
		<nav>Markets | Economy | Politics</nav>
	</header>
	<main>
		<article>
			<h1>Central bank holds rates</h1>
			<p>The central bank left its <strong>benchmark rate</strong> unchanged on Wednesday, citing persistent inflation in services and a labour market that remains tight.</p>
			<p>Policymakers signalled that cuts were unlikely before the summer, and several members argued that the risks to the inflation outlook were still tilted to the upside.</p>
			<p>Bond yields rose after the announcement while the currency strengthened against the dollar and the euro in thin afternoon trading.</p>
		</article>
	</main>
	<aside>
		<div>Advertisement</div>
	</aside>
	<footer>
		<p>Copyright 2024</p>
	</footer>
</body>
</html>
`

func TestContentExtractor_Run_ValidHTML(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(articlePage))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(result, "left its benchmark rate unchanged") {
		t.Errorf("Expected extracted text to contain the article body, got %q", result)
	}

	if strings.Contains(result, "Advertisement") {
		t.Errorf("Expected extracted text to exclude advertisement")
	}

	if strings.Contains(result, "Copyright 2024") {
		t.Errorf("Expected extracted text to exclude footer")
	}
}

func TestContentExtractor_Run_ReturnsPlainText(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(articlePage))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(result, "<strong>") || strings.Contains(result, "<p>") {
		t.Errorf("Expected markup to be stripped, got %q", result)
	}

	if strings.Contains(result, "do-not-extract") {
		t.Errorf("Expected script content to be removed")
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	extractor := NewContentExtractor()

	for _, data := range [][]byte{nil, {}} {
		result, err := extractor.Run(data)
		if err == nil {
			t.Fatalf("Expected error for empty data")
		}
		if result != "" {
			t.Errorf("Expected empty result for empty data")
		}
		if err.Error() != "HTML data is empty" {
			t.Errorf("Expected error message 'HTML data is empty', got '%s'", err.Error())
		}
	}
}

func TestContentExtractor_Run_MinimalHTML(t *testing.T) {
	extractor := NewContentExtractor()

	result, err := extractor.Run([]byte(`<html><body><p>Short text</p></body></html>`))

	// Below the readability threshold extraction may fail; either outcome is fine
	// as long as a success carries the text.
	if err != nil {
		if result != "" {
			t.Errorf("Expected empty result when extraction fails")
		}
	} else if !strings.Contains(result, "Short text") {
		t.Errorf("Expected extracted content to contain the text, got %q", result)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "  Rates   unchanged\n today ", "Rates unchanged today"},
		{"markup", "<p>Rates <b>unchanged</b> today</p>", "Rates unchanged today"},
		{"entities", "Profits &amp; losses", "Profits & losses"},
		{"script", "<div>Visible<script>hidden()</script></div>", "Visible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
