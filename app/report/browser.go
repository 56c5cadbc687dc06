package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/lysyi3m/news-sieve/app/database"
)

// Categories offered by the category filter. Any other value can still be
// typed directly.
var Categories = []string{"general", "world", "economics", "business", "markets", "politics", "climate"}

const clearScreen = "\033[2J\033[H"

// Browser is the interactive paginated article viewer.
type Browser struct {
	store    database.ArticleStore
	renderer *Renderer
	out      io.Writer

	filter   database.Filter
	page     int
	pageSize int
	full     bool

	total int
	pages int
	clear bool
}

// NewBrowser starts on page with the given filter. Source and category can
// be changed interactively; reset clears both and keeps the time window and
// search terms.
func NewBrowser(store database.ArticleStore, renderer *Renderer, out io.Writer, filter database.Filter, page, pageSize int, full bool) *Browser {
	return &Browser{
		store:    store,
		renderer: renderer,
		out:      out,
		filter:   filter,
		page:     max(page, 1),
		pageSize: max(pageSize, 1),
		full:     full,
		pages:    1,
	}
}

// Run reads commands until q, Ctrl-C on an empty line or EOF.
func (b *Browser) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          PromptStyle.Render("browse> "),
		HistoryFile:     filepath.Join(os.TempDir(), ".news_sieve_history"),
		AutoComplete:    b.buildAutoCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "q",
		Stdout:          b.out,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	b.clear = true

	if err := b.Show(ctx); err != nil {
		return err
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		quit, err := b.Handle(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			break
		}
	}

	fmt.Fprintln(b.out, "Goodbye!")
	return nil
}

func (b *Browser) buildAutoCompleter() *readline.PrefixCompleter {
	categories := make([]readline.PrefixCompleterInterface, 0, len(Categories))
	for _, c := range Categories {
		categories = append(categories, readline.PcItem(c))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("n"),
		readline.PcItem("p"),
		readline.PcItem("g"),
		readline.PcItem("f"),
		readline.PcItem("s",
			readline.PcItemDynamic(b.listSources),
		),
		readline.PcItem("c", categories...),
		readline.PcItem("r"),
		readline.PcItem("h"),
		readline.PcItem("q"),
	)
}

func (b *Browser) listSources(string) []string {
	sources, err := b.store.DistinctSources(context.Background())
	if err != nil {
		return nil
	}
	return sources
}

// Show renders the current page with its filter and navigation lines.
func (b *Browser) Show(ctx context.Context) error {
	total, err := b.store.Count(ctx, b.filter)
	if err != nil {
		return err
	}
	b.total = total
	b.pages = max((total+b.pageSize-1)/b.pageSize, 1)
	b.page = min(b.page, b.pages)

	offset := (b.page - 1) * b.pageSize
	articles, err := b.store.Query(ctx, b.filter, b.pageSize, offset)
	if err != nil {
		return err
	}

	if b.clear {
		fmt.Fprint(b.out, clearScreen)
	}

	fmt.Fprintln(b.out, HeaderStyle.Render("News database browser"))
	if filters := b.describeFilter(); filters != "" {
		fmt.Fprintf(b.out, "Filters: %s\n", filters)
	}
	b.renderer.Page(b.out, b.page, b.pages, b.total)
	fmt.Fprintln(b.out)

	b.renderer.Articles(b.out, articles, offset+1, b.full)

	fmt.Fprintln(b.out)
	fmt.Fprintln(b.out, DimStyle.Render(b.navigation()))
	return nil
}

// Handle executes one command line. It reports whether the browser should
// exit. Input mistakes are printed, not returned; only store errors are.
func (b *Browser) Handle(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "q", "quit", "exit":
		return true, nil
	case "n":
		if b.page >= b.pages {
			b.notice("Already on the last page.")
			return false, nil
		}
		b.page++
	case "p":
		if b.page <= 1 {
			b.notice("Already on the first page.")
			return false, nil
		}
		b.page--
	case "g":
		page, err := strconv.Atoi(arg)
		if err != nil || page < 1 || page > b.pages {
			b.notice(fmt.Sprintf("Invalid page number. Please enter 1-%d", b.pages))
			return false, nil
		}
		b.page = page
	case "f":
		b.full = !b.full
	case "s":
		return false, b.selectSource(ctx, arg)
	case "c":
		b.selectCategory(arg)
		if arg == "" {
			return false, nil
		}
	case "r":
		b.filter.Source = ""
		b.filter.Category = ""
		b.page = 1
	case "h", "help":
		b.help()
		return false, nil
	default:
		b.notice("Invalid command. Type 'h' for help.")
		return false, nil
	}

	return false, b.Show(ctx)
}

// selectSource lists sources without an argument. The argument is either a
// list number, a source name or "-" to clear the filter.
func (b *Browser) selectSource(ctx context.Context, arg string) error {
	sources, err := b.store.DistinctSources(ctx)
	if err != nil {
		return err
	}

	if arg == "" {
		fmt.Fprintln(b.out, SubheaderStyle.Render("Available sources:"))
		for i, source := range sources {
			fmt.Fprintf(b.out, "  %d. %s\n", i+1, source)
		}
		fmt.Fprintln(b.out, DimStyle.Render("Use 's <number|name>' to filter, 's -' to clear."))
		return nil
	}

	source, ok := pick(sources, arg)
	if !ok {
		b.notice("Invalid choice")
		return nil
	}

	b.filter.Source = source
	b.page = 1
	return b.Show(ctx)
}

func (b *Browser) selectCategory(arg string) {
	if arg == "" {
		fmt.Fprintln(b.out, SubheaderStyle.Render("Available categories:"))
		for i, category := range Categories {
			fmt.Fprintf(b.out, "  %d. %s\n", i+1, category)
		}
		fmt.Fprintln(b.out, DimStyle.Render("Use 'c <number|name>' to filter, 'c -' to clear."))
		return
	}

	category, ok := pick(Categories, arg)
	if !ok {
		category = strings.ToLower(arg)
	}

	b.filter.Category = category
	b.page = 1
}

// pick resolves a 1-based list number, an exact name or "-" (empty).
func pick(options []string, arg string) (string, bool) {
	if arg == "-" {
		return "", true
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(options) {
			return "", false
		}
		return options[n-1], true
	}

	for _, option := range options {
		if strings.EqualFold(option, arg) {
			return option, true
		}
	}
	return "", false
}

func (b *Browser) describeFilter() string {
	var parts []string
	if b.filter.Source != "" {
		parts = append(parts, "Source: "+b.filter.Source)
	}
	if b.filter.Category != "" {
		parts = append(parts, "Category: "+b.filter.Category)
	}
	if b.filter.Topic != "" {
		parts = append(parts, "Topic: "+b.filter.Topic)
	}
	if !b.filter.Since.IsZero() {
		parts = append(parts, "Since "+b.filter.Since.Local().Format(timeLayout))
	}
	if b.filter.Search != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", b.filter.Search))
	}
	return strings.Join(parts, " | ")
}

func (b *Browser) navigation() string {
	var items []string
	if b.page > 1 {
		items = append(items, "[p] previous")
	}
	if b.page < b.pages {
		items = append(items, "[n] next")
	}
	items = append(items, "[g N] go to page", "[f] toggle details", "[s] source", "[c] category", "[r] reset", "[h] help", "[q] quit")
	return strings.Join(items, "  ")
}

func (b *Browser) help() {
	fmt.Fprintln(b.out, SubheaderStyle.Render("Help:"))
	fmt.Fprintln(b.out, "  n / p        next or previous page")
	fmt.Fprintln(b.out, "  g <page>     jump to a page")
	fmt.Fprintln(b.out, "  f            toggle between summary and full article details")
	fmt.Fprintln(b.out, "  s [n|name|-] list sources, filter by one, or clear the filter")
	fmt.Fprintln(b.out, "  c [n|name|-] list categories, filter by one, or clear the filter")
	fmt.Fprintln(b.out, "  r            reset source and category filters")
	fmt.Fprintln(b.out, "  q            quit the browser")
}

func (b *Browser) notice(msg string) {
	fmt.Fprintln(b.out, WarningStyle.Render(msg))
}
