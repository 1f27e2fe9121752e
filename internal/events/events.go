// Package events imports community events from RSS/Atom feeds into the
// events table, deduplicating by content hash.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/haydenwy/civicboard/internal/config"
	"github.com/haydenwy/civicboard/internal/database"
)

const maxPerFeed = 20

// Result holds the results of a feed import run.
type Result struct {
	TotalFound int
	NewEvents  int
	Duplicates int
	Sources    map[string]int
}

// Importer pulls community events from configured feeds.
type Importer struct {
	db     *database.DB
	feeds  []config.Feed
	parser *gofeed.Parser
}

// NewImporter creates an importer for the configured event feeds.
func NewImporter(cfg *config.Config, db *database.DB) *Importer {
	return &Importer{
		db:     db,
		feeds:  cfg.Events.Feeds,
		parser: gofeed.NewParser(),
	}
}

// Import fetches every configured feed and inserts new events. A feed that
// fails to parse is logged and skipped; the run continues.
func (im *Importer) Import() *Result {
	r := &Result{Sources: make(map[string]int)}

	for _, fc := range im.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := im.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			if count >= maxPerFeed {
				break
			}
			event := eventFromItem(item, name)
			if event == nil {
				continue
			}
			count++
			r.TotalFound++

			_, duplicate, err := im.db.InsertEvent(event)
			if err != nil {
				log.Printf("Failed to insert event %q: %v", event.Name, err)
				continue
			}
			if duplicate {
				r.Duplicates++
				continue
			}
			r.NewEvents++
			r.Sources[name]++
		}
		log.Printf("Imported %d entries from %s", count, name)
	}

	return r
}

// eventFromItem maps one feed entry onto an event row. Entries without a
// link or title are unusable and dropped.
func eventFromItem(item *gofeed.Item, source string) *database.Event {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if link == "" || title == "" {
		return nil
	}

	date := ""
	if item.PublishedParsed != nil {
		date = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		date = item.UpdatedParsed.Format("2006-01-02")
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	event := &database.Event{
		Name:   title,
		Date:   date,
		Source: &source,
	}
	if desc := stripHTML(item.Description); desc != "" {
		event.Description = &desc
	}
	hash := entryHash(link, title, date)
	event.PDFHash = &hash
	return event
}

// entryHash derives the dedup hash for a feed entry. Imported entries have
// no uploaded document, so the hash covers the entry identity instead.
func entryHash(link, title, date string) string {
	sum := sha256.Sum256([]byte(link + "\x00" + title + "\x00" + date))
	return hex.EncodeToString(sum[:])
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "rss.", "feeds.", "calendar."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
