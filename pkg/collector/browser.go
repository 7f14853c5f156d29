package collector

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/tbrennan/chronicle/pkg/types"
)

// chromeEpochOffsetSeconds is the number of seconds between the Windows
// FILETIME epoch (1601-01-01) Chrome uses and the Unix epoch.
const chromeEpochOffsetSeconds = 11644473600

var ignoreURLPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"about:",
	"moz-extension://",
	"edge://",
	"brave://",
	"file://",
	"data:",
}

func shouldIgnoreURL(u string) bool {
	for _, prefix := range ignoreURLPrefixes {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

type browserVisit struct {
	url       string
	title     string
	timestamp time.Time
	browser   string
	visitTime int64
}

// Browser reads Chrome and Firefox history databases, copying each to a
// temp file first so an open, locked browser process doesn't block the
// read, and emits browser.visit events for new page visits.
type Browser struct {
	chromePath   string
	firefoxPath  string
	pollInterval time.Duration
	log          zerolog.Logger

	lastChromeVisit  int64
	lastFirefoxVisit int64
	seenVisits       map[string]time.Time
}

// NewBrowser constructs a browser collector. Either path may be empty if
// that browser isn't present on the host.
func NewBrowser(chromePath, firefoxPath string, pollInterval time.Duration, log zerolog.Logger) *Browser {
	return &Browser{
		chromePath:   chromePath,
		firefoxPath:  firefoxPath,
		pollInterval: pollInterval,
		log:          log,
		seenVisits:   make(map[string]time.Time),
	}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Run(ctx context.Context, sink Sink) error {
	nowMicro := time.Now().UnixMicro()
	b.lastChromeVisit = nowMicro + chromeEpochOffsetSeconds*1_000_000
	b.lastFirefoxVisit = nowMicro

	var browsers []string
	if b.chromePath != "" && pathExists(b.chromePath) {
		browsers = append(browsers, "Chrome")
	}
	if b.firefoxPath != "" && pathExists(b.firefoxPath) {
		browsers = append(browsers, "Firefox")
	}
	if len(browsers) > 0 {
		b.log.Info().Str("browsers", strings.Join(browsers, ", ")).Msg("monitoring browser history")
	} else {
		b.log.Warn().Msg("no browser history databases found")
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		b.poll(ctx, sink)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Browser) poll(ctx context.Context, sink Sink) {
	now := time.Now()
	// Dedup keys only need to survive long enough to cover two poll
	// periods of overlap; older entries are pruned so the set cannot
	// grow without bound over a long-running daemon.
	cutoff := now.Add(-2 * b.pollInterval)
	for key, seenAt := range b.seenVisits {
		if seenAt.Before(cutoff) {
			delete(b.seenVisits, key)
		}
	}

	if b.chromePath != "" && pathExists(b.chromePath) {
		visits := b.readChromeHistory(ctx)
		for _, v := range visits {
			key := fmt.Sprintf("chrome:%d", v.visitTime)
			if _, seen := b.seenVisits[key]; seen {
				continue
			}
			b.seenVisits[key] = now
			if v.visitTime > b.lastChromeVisit {
				b.lastChromeVisit = v.visitTime
			}
			sink(b.event(v))
		}
	}

	if b.firefoxPath != "" && pathExists(b.firefoxPath) {
		visits := b.readFirefoxHistory(ctx)
		for _, v := range visits {
			key := fmt.Sprintf("firefox:%d", v.visitTime)
			if _, seen := b.seenVisits[key]; seen {
				continue
			}
			b.seenVisits[key] = now
			if v.visitTime > b.lastFirefoxVisit {
				b.lastFirefoxVisit = v.visitTime
			}
			sink(b.event(v))
		}
	}
}

func (b *Browser) readChromeHistory(ctx context.Context) []browserVisit {
	dbCopy, err := copyDatabase(b.chromePath, "chrome")
	if err != nil {
		b.log.Debug().Err(err).Msg("failed to copy chrome database")
		return nil
	}
	defer os.Remove(dbCopy)

	db, err := sql.Open("sqlite", dbCopy)
	if err != nil {
		b.log.Debug().Err(err).Msg("chrome history open error")
		return nil
	}
	defer db.Close()

	const query = `
		SELECT urls.url, urls.title, visits.visit_time
		FROM visits
		JOIN urls ON visits.url = urls.id
		WHERE visits.visit_time > ?
		ORDER BY visits.visit_time DESC
		LIMIT 100
	`
	rows, err := db.QueryContext(ctx, query, b.lastChromeVisit)
	if err != nil {
		b.log.Debug().Err(err).Msg("chrome history read error")
		return nil
	}
	defer rows.Close()

	var visits []browserVisit
	for rows.Next() {
		var u, title string
		var visitTime int64
		if err := rows.Scan(&u, &title, &visitTime); err != nil {
			continue
		}
		if shouldIgnoreURL(u) {
			continue
		}
		unixSeconds := visitTime/1_000_000 - chromeEpochOffsetSeconds
		visits = append(visits, browserVisit{
			url:       u,
			title:     title,
			timestamp: time.Unix(unixSeconds, 0),
			browser:   "chrome",
			visitTime: visitTime,
		})
	}
	return visits
}

func (b *Browser) readFirefoxHistory(ctx context.Context) []browserVisit {
	dbCopy, err := copyDatabase(b.firefoxPath, "firefox")
	if err != nil {
		b.log.Debug().Err(err).Msg("failed to copy firefox database")
		return nil
	}
	defer os.Remove(dbCopy)

	db, err := sql.Open("sqlite", dbCopy)
	if err != nil {
		b.log.Debug().Err(err).Msg("firefox history open error")
		return nil
	}
	defer db.Close()

	const query = `
		SELECT moz_places.url, moz_places.title, moz_historyvisits.visit_date
		FROM moz_historyvisits
		JOIN moz_places ON moz_historyvisits.place_id = moz_places.id
		WHERE moz_historyvisits.visit_date > ?
		ORDER BY moz_historyvisits.visit_date DESC
		LIMIT 100
	`
	rows, err := db.QueryContext(ctx, query, b.lastFirefoxVisit)
	if err != nil {
		b.log.Debug().Err(err).Msg("firefox history read error")
		return nil
	}
	defer rows.Close()

	var visits []browserVisit
	for rows.Next() {
		var u string
		var title sql.NullString
		var visitDate int64
		if err := rows.Scan(&u, &title, &visitDate); err != nil {
			continue
		}
		if shouldIgnoreURL(u) {
			continue
		}
		visits = append(visits, browserVisit{
			url:       u,
			title:     title.String,
			timestamp: time.UnixMicro(visitDate),
			browser:   "firefox",
			visitTime: visitDate,
		})
	}
	return visits
}

// copyDatabase copies a locked browser history file to a temp location so
// it can be opened read-only without contending with the live browser
// process.
func copyDatabase(source, label string) (string, error) {
	in, err := os.Open(source)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dest := filepath.Join(os.TempDir(), fmt.Sprintf("CHRONICLE_%s_%s", label, filepath.Base(source)))
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (b *Browser) event(v browserVisit) types.Event {
	domain := extractDomain(v.url)
	title := truncate(v.title, 50)
	description := "Visited: " + title
	if title == "" {
		description = "Visited: " + domain
	}

	return types.Event{
		ID:          uuid.NewString(),
		EventType:   types.EventBrowserVisit,
		Timestamp:   v.timestamp,
		Source:      b.Name(),
		Subject:     truncate(v.url, 500),
		Description: description,
		Metadata: map[string]string{
			"browser": v.browser,
			"title":   v.title,
			"domain":  domain,
		},
	}
}

func extractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
