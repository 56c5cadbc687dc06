package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mattn/go-runewidth"

	"github.com/lysyi3m/news-sieve/app/classify"
	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/ingest"
)

const (
	titleWidth       = 64
	sourceWidth      = 20
	descriptionWidth = 600
	timeLayout       = "2006-01-02 15:04"
	ellipsis         = "…"
)

// Renderer writes human-readable reports for the CLI.
type Renderer struct {
	converter *md.Converter
}

func NewRenderer() *Renderer {
	return &Renderer{converter: md.NewConverter("", true, nil)}
}

// Articles writes one line per article, or full details when full is set.
// Numbering starts at start.
func (r *Renderer) Articles(w io.Writer, articles []database.Article, start int, full bool) {
	if len(articles) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No articles found."))
		return
	}

	for i, a := range articles {
		if full {
			r.Details(w, a, start+i)
			continue
		}

		fmt.Fprintf(w, "%4d. %s  %s  %s\n",
			start+i,
			DimStyle.Render(a.Published.Local().Format(timeLayout)),
			SourceStyle.Render(column(a.Source, sourceWidth)),
			truncate(a.Title, titleWidth))
	}

	fmt.Fprintf(w, "\n%s\n", DimStyle.Render(fmt.Sprintf("Showing %d articles", len(articles))))
}

// Details writes every stored field of an article. The HTML description is
// converted to markdown.
func (r *Renderer) Details(w io.Writer, a database.Article, index int) {
	fmt.Fprintf(w, "\n%s\n", SubheaderStyle.Render(fmt.Sprintf("--- Article %d ---", index)))
	fmt.Fprintf(w, "Title:       %s\n", TitleStyle.Render(a.Title))
	fmt.Fprintf(w, "Source:      %s\n", SourceStyle.Render(a.Source))
	fmt.Fprintf(w, "Category:    %s\n", orNA(a.Category))
	fmt.Fprintf(w, "Published:   %s\n", a.Published.Local().Format(timeLayout))
	fmt.Fprintf(w, "Link:        %s\n", URLStyle.Render(a.Link))

	if a.Author != "" {
		fmt.Fprintf(w, "Author:      %s\n", a.Author)
	}

	fmt.Fprintf(w, "Topics:      %s\n", orNA(formatScores(a.Topics)))
	fmt.Fprintf(w, "Geographies: %s\n", orNA(formatScores(a.Geographies)))
	fmt.Fprintf(w, "Sentiment:   %s\n", formatSentiment(a.SentimentLabel, a.Polarity, a.Subjectivity))

	if len(a.AdditionalTags) > 0 {
		fmt.Fprintf(w, "Tags:        %s\n", strings.Join(a.AdditionalTags, ", "))
	}

	if description := r.markdown(a.Description); description != "" {
		fmt.Fprintf(w, "Description:\n%s\n", indent(truncate(description, descriptionWidth)))
	}
}

func (r *Renderer) markdown(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	text, err := r.converter.ConvertString(html)
	if err != nil {
		slog.Debug("Failed to convert description to markdown", "error", err)
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(text)
}

// Page writes the pagination line shown above a listing.
func (r *Renderer) Page(w io.Writer, page, pages, total int) {
	fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("Page %d of %d (%d total articles)", page, pages, total)))
}

func (r *Renderer) Stats(w io.Writer, stats *database.Stats) {
	fmt.Fprintln(w, HeaderStyle.Render("Database Statistics"))
	fmt.Fprintf(w, "Total articles:          %d\n", stats.Total)
	fmt.Fprintf(w, "Total sources:           %d\n", stats.Sources)
	fmt.Fprintf(w, "Articles in last %dh:     %d\n", stats.RecentHours, stats.Recent)

	if len(stats.PerSource) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubheaderStyle.Render("Articles by source:"))
		r.sourceCounts(w, stats.PerSource)
	}
}

func (r *Renderer) Sources(w io.Writer, sources []string) {
	fmt.Fprintln(w, HeaderStyle.Render("Available sources"))
	if len(sources) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No sources stored yet."))
		return
	}
	for _, source := range sources {
		fmt.Fprintf(w, "  - %s\n", source)
	}
}

// Summary writes the result of one ingestion run. A dry run also lists the
// sampled classifications.
func (r *Renderer) Summary(w io.Writer, s *ingest.Summary) {
	title := "Ingestion summary"
	if s.DryRun {
		title += " (dry run, nothing stored)"
	}
	fmt.Fprintln(w, HeaderStyle.Render(title))

	feeds := fmt.Sprintf("%d", s.Feeds)
	if s.Failed > 0 {
		feeds += WarningStyle.Render(fmt.Sprintf(" (%d failed)", s.Failed))
	}
	fmt.Fprintf(w, "Feeds:          %s\n", feeds)
	fmt.Fprintf(w, "Parsed:         %d\n", s.Parsed)
	if s.Filtered > 0 {
		fmt.Fprintf(w, "Filtered out:   %d\n", s.Filtered)
	}
	fmt.Fprintf(w, "Classified:     %d\n", s.Classified)

	if !s.DryRun {
		fmt.Fprintf(w, "New:            %s\n", SuccessStyle.Render(fmt.Sprintf("%d", s.New)))
		fmt.Fprintf(w, "Duplicates:     %d\n", s.Duplicates)
		fmt.Fprintf(w, "Total in store: %d\n", s.Total)
	}
	fmt.Fprintf(w, "Duration:       %s\n", s.Duration.Round(time.Millisecond))

	if len(s.PerSource) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubheaderStyle.Render("Articles by source:"))
		r.sourceCounts(w, s.PerSource)
	}

	if len(s.Sample) > 0 {
		fmt.Fprintf(w, "\n%s\n", SubheaderStyle.Render("Sample classifications:"))
		for i, sample := range s.Sample {
			c := sample.Classification
			fmt.Fprintf(w, "\n%d. %s\n", i+1, TitleStyle.Render(sample.Article.Title))
			fmt.Fprintf(w, "   Source:      %s\n", sample.Article.Source)
			fmt.Fprintf(w, "   Topics:      %s\n", orNA(formatScores(tagScores(c.Topics))))
			fmt.Fprintf(w, "   Geographies: %s\n", orNA(formatScores(tagScores(c.Geographies))))
			fmt.Fprintf(w, "   Sentiment:   %s\n", formatSentiment(c.Sentiment.Label, c.Sentiment.Polarity, c.Sentiment.Subjectivity))
		}
	}
}

func (r *Renderer) ReviewSync(w io.Writer, result database.SyncResult) {
	fmt.Fprintln(w, HeaderStyle.Render("Review store sync"))
	fmt.Fprintf(w, "Scanned:  %d\n", result.Scanned)
	fmt.Fprintf(w, "Added:    %s\n", SuccessStyle.Render(fmt.Sprintf("%d", result.Added)))
	fmt.Fprintf(w, "In store: %d\n", result.Total)
}

// Outcomes writes review counts in workflow order.
func (r *Renderer) Outcomes(w io.Writer, counts map[string]int) {
	fmt.Fprintln(w, SubheaderStyle.Render("Review outcomes:"))
	for _, outcome := range []string{database.OutcomeNew, database.OutcomeProcessed, database.OutcomeRejected} {
		fmt.Fprintf(w, "  %s %d\n", column(outcome, 12), counts[outcome])
	}
}

func (r *Renderer) Feeds(w io.Writer, feeds []database.FeedSource) {
	fmt.Fprintln(w, HeaderStyle.Render("Feed sources"))
	if len(feeds) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No feeds stored yet."))
		return
	}

	for _, f := range feeds {
		state := SuccessStyle.Render("active  ")
		if !f.Active {
			state = WarningStyle.Render("inactive")
		}

		fetched := "never"
		if f.LastFetched != nil {
			fetched = f.LastFetched.Local().Format(timeLayout)
		}

		fmt.Fprintf(w, "  %s %s %s %s %s\n",
			state,
			SourceStyle.Render(column(f.Name, sourceWidth)),
			column(f.Category, 12),
			DimStyle.Render(column(fetched, len(timeLayout))),
			URLStyle.Render(f.URL))
	}
}

func (r *Renderer) sourceCounts(w io.Writer, counts []database.SourceCount) {
	width := 0
	for _, c := range counts {
		width = max(width, runewidth.StringWidth(c.Source))
	}
	width = min(width, sourceWidth*2)

	for _, c := range counts {
		fmt.Fprintf(w, "  %s %d\n", column(c.Source+":", width+1), c.Count)
	}
}

// truncate shortens s to at most width display cells.
func truncate(s string, width int) string {
	return runewidth.Truncate(strings.TrimSpace(s), width, ellipsis)
}

// column truncates s and pads it to exactly width display cells.
func column(s string, width int) string {
	return runewidth.FillRight(truncate(s, width), width)
}

// formatScores prefixes subtopics with their parent and appends the location
// of a geography, e.g. "Economics/Central Banking (0.36)" or
// "India (0.60) [IN, South Asia, Asia]".
func formatScores(scores []database.TagScore) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		name := s.Name
		if s.Parent != "" {
			name = s.Parent + "/" + name
		}
		part := fmt.Sprintf("%s (%.2f)", name, s.Confidence)
		if location := formatLocation(s); location != "" {
			part += " [" + location + "]"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func formatLocation(s database.TagScore) string {
	var parts []string
	if s.CountryCode != "" {
		parts = append(parts, s.CountryCode)
	}
	if s.Region != "" {
		parts = append(parts, s.Region)
	}
	if s.Continent != "" && s.Continent != s.Region {
		parts = append(parts, s.Continent)
	}
	return strings.Join(parts, ", ")
}

func tagScores(scores []classify.Score) []database.TagScore {
	converted := make([]database.TagScore, 0, len(scores))
	for _, s := range scores {
		converted = append(converted, database.TagScore(s))
	}
	return converted
}

func formatSentiment(label string, polarity, subjectivity float64) string {
	if label == "" {
		return "N/A"
	}
	return fmt.Sprintf("%s (polarity %.2f, subjectivity %.2f)",
		sentimentStyle(label).Render(label), polarity, subjectivity)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
