package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
)

// Channel describes the exported feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfURL     string
	Generator   string
}

// Generator renders stored articles as an RSS 2.0 document. Classification
// results are exported as category elements with a domain per kind.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

func (g *Generator) Run(channel Channel, articles []database.Article) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(xml.Header)
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, "Classified news articles"), 4)

	if channel.SelfURL != "" {
		buf.WriteString(`    <atom:link href="`)
		xml.EscapeText(&buf, []byte(channel.SelfURL))
		buf.WriteString("\" rel=\"self\" type=\"application/rss+xml\" />\n")
	}

	lastBuildDate := g.now()
	if len(articles) > 0 {
		lastBuildDate = cmp.Or(articles[0].Published, articles[0].CreatedAt, lastBuildDate)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.UTC().Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	if guid := cmp.Or(article.GUID, article.Link); guid != "" {
		fmt.Fprintf(buf, "      <guid isPermaLink=\"%t\">", g.isURL(guid))
		xml.EscapeText(buf, []byte(guid))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.Link, 6)
	g.writeElement(buf, "description", cmp.Or(article.Summary, article.Description, "No description available"), 6)

	if article.Content != "" && article.Content != article.Description {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(article.Content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", article.Published.UTC().Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", article.Author, 6)

	if article.Source != "" {
		buf.WriteString("      <source url=\"")
		xml.EscapeText(buf, []byte(article.FeedURL))
		buf.WriteString("\">")
		xml.EscapeText(buf, []byte(article.Source))
		buf.WriteString("</source>\n")
	}

	g.writeCategory(buf, "", article.Category)
	for _, topic := range article.Topics {
		g.writeCategory(buf, "topic", topic.Name)
	}
	for _, geography := range article.Geographies {
		g.writeCategory(buf, "geography", geography.Name)
	}
	g.writeCategory(buf, "sentiment", article.SentimentLabel)
	for _, tag := range article.AdditionalTags {
		g.writeCategory(buf, "tag", tag)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeCategory(buf *bytes.Buffer, domain, value string) {
	if value == "" {
		return
	}

	buf.WriteString("      <category")
	if domain != "" {
		fmt.Fprintf(buf, " domain=\"%s\"", domain)
	}
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(value))
	buf.WriteString("</category>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
