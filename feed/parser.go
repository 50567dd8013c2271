// Package feed provides Letterboxd diary feed fetching and parsing for alist-cli.
package feed

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/robertmeta/alist-cli/model"
)

// Namespace prefixes used by the Letterboxd RSS feed.
const (
	nsLetterboxd = "letterboxd"
	nsTMDB       = "tmdb"
)

// filmPattern pulls the film slug out of links like
// https://letterboxd.com/someone/film/past-lives/1/
var filmPattern = regexp.MustCompile(`/film/([^/?#]+)`)

// watchedDateLayouts are tried in order for the watched-date field.
var watchedDateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// pubDateLayouts are tried before gofeed's own parsed value, which is
// normalized to UTC and can land on a different calendar day.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// Parser turns a diary feed document into watch records.
type Parser struct {
	parser *gofeed.Parser
}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// Parse parses feed content from a string. Items without a usable title or
// watch date are dropped; an error is returned only when the document as a
// whole is not a feed.
func (p *Parser) Parse(content string) ([]model.WatchRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("feed content is empty")
	}

	parsedFeed, err := p.parser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return p.convert(parsedFeed), nil
}

// convert converts the items of a gofeed.Feed to watch records.
func (p *Parser) convert(gf *gofeed.Feed) []model.WatchRecord {
	records := make([]model.WatchRecord, 0, len(gf.Items))
	for _, item := range gf.Items {
		if item == nil {
			continue
		}
		record, ok := p.convertItem(item)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

// convertItem converts a gofeed.Item to a WatchRecord. The second result is
// false when the item is incomplete.
func (p *Parser) convertItem(item *gofeed.Item) (model.WatchRecord, bool) {
	title := decodeText(extValue(item.Extensions, nsLetterboxd, "filmTitle"))
	if title == "" {
		title = decodeText(item.Title)
	}
	if title == "" {
		return model.WatchRecord{}, false
	}

	watchDate, ok := resolveDate(item)
	if !ok {
		return model.WatchRecord{}, false
	}

	sourceID := filmSlug(item.Link)
	if sourceID == "" {
		sourceID = filmSlug(item.GUID)
	}
	key := sourceID
	if key == "" {
		key = Slugify(title)
	}

	record := model.WatchRecord{
		ID:        key + "-" + watchDate.String(),
		Title:     title,
		WatchDate: watchDate,
		SourceID:  sourceID,
		Link:      item.Link,
		TMDBID:    strings.TrimSpace(extValue(item.Extensions, nsTMDB, "movieId")),
		Rewatch:   strings.EqualFold(strings.TrimSpace(extValue(item.Extensions, nsLetterboxd, "rewatch")), "yes"),
		// The feed never says whether the membership was used.
		CountsTowardMembership: false,
		AddedManually:          false,
	}

	if year, err := strconv.Atoi(strings.TrimSpace(extValue(item.Extensions, nsLetterboxd, "filmYear"))); err == nil && year > 0 {
		record.FilmYear = year
	}
	record.Rating = parseRating(extValue(item.Extensions, nsLetterboxd, "memberRating"))

	return record, true
}

// resolveDate prefers the watched date and falls back to the publish date.
// A watched date that is present but unparseable drops the item.
func resolveDate(item *gofeed.Item) (model.Date, bool) {
	if watched := strings.TrimSpace(extValue(item.Extensions, nsLetterboxd, "watchedDate")); watched != "" {
		return parseDate(watched, watchedDateLayouts)
	}

	if published := strings.TrimSpace(item.Published); published != "" {
		if d, ok := parseDate(published, pubDateLayouts); ok {
			return d, true
		}
	}
	if item.PublishedParsed != nil {
		return model.DateOf(*item.PublishedParsed), true
	}
	return model.Date{}, false
}

func parseDate(s string, layouts []string) (model.Date, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), true
		}
	}
	return model.Date{}, false
}

// parseRating returns nil for anything that is not a finite rating.
func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !model.ValidRating(v) {
		return nil
	}
	return &v
}

// filmSlug extracts the film slug from a link or GUID, or "" if none.
func filmSlug(s string) string {
	m := filmPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// extValue returns the first value of prefix:name, or "".
func extValue(exts ext.Extensions, prefix, name string) string {
	if exts == nil {
		return ""
	}
	values := exts[prefix][name]
	if len(values) == 0 {
		return ""
	}
	return values[0].Value
}

// decodeText strips CDATA wrappers and resolves entity references that
// survived XML decoding (feeds routinely double-escape titles).
func decodeText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<![CDATA[")
	s = strings.TrimSuffix(s, "]]>")
	return strings.TrimSpace(html.UnescapeString(s))
}
