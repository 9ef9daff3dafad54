// Package portal fetches weekly timetable pages from the student portal
// using the session cookies captured at login.
package portal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appLog "iuhsched/internal/log"
)

var (
	// ErrStatus wraps non-200 responses.
	ErrStatus = errors.New("portal returned non-OK status")
	// ErrLoginRequired is returned when the portal redirected to its login
	// page, meaning the stored cookies expired.
	ErrLoginRequired = errors.New("portal session expired; log in again")
)

// loginMarkers identify the portal's login page URL.
var loginMarkers = []string{"dang-nhap", "login"}

// Page is a fetched timetable page.
type Page struct {
	URL       string
	Offset    int
	Body      string
	FetchedAt time.Time
}

// WeekURL returns the timetable URL for the week offset weeks away from the
// current one. The portal numbers weeks from 1 for the current week.
func WeekURL(base string, offset int) string {
	if offset == 0 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "&pTuanHoc=" + strconv.Itoa(offset+1)
	}
	q := u.Query()
	q.Set("pTuanHoc", strconv.Itoa(offset+1))
	u.RawQuery = q.Encode()
	return u.String()
}

// cacheEntry holds metadata for the last page fetched from a URL.
type cacheEntry struct {
	URL       string    `json:"url"`
	Offset    int       `json:"offset"`
	Status    int       `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fetcher requests timetable pages over HTTP. Requests time out and are not
// retried.
type Fetcher struct {
	client      *http.Client
	baseURL     string
	cookiesPath string
	cacheDir    string
}

// NewFetcher creates a Fetcher for the given portal URL. cacheDir keeps the
// last successful body per URL; empty disables the cache.
func NewFetcher(baseURL, cookiesPath, cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		cookiesPath: cookiesPath,
		cacheDir:    cacheDir,
	}
}

// FetchWeek downloads the timetable page for offset.
func (f *Fetcher) FetchWeek(ctx context.Context, offset int) (Page, error) {
	cookies, err := LoadCookies(f.cookiesPath)
	if err != nil {
		return Page{}, fmt.Errorf("load cookies: %w", err)
	}
	if len(cookies) == 0 {
		return Page{}, ErrNoCookies
	}

	target := WeekURL(f.baseURL, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, err
	}
	for _, c := range HTTPCookies(cookies) {
		req.AddCookie(c)
	}

	appLog.Info("portal fetch start", "offset", offset, "url", redactURL(target))

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("fetch week %d: %w", offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch week %d: %w: %s", offset, ErrStatus, resp.Status)
	}
	if IsLoginURL(resp.Request.URL.String()) {
		return Page{}, ErrLoginRequired
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read week %d: %w", offset, err)
	}

	page := Page{URL: target, Offset: offset, Body: string(body), FetchedAt: time.Now()}
	if err := f.saveCache(page, resp.StatusCode); err != nil {
		// Log but still return the freshly fetched body.
		appLog.Error("portal cache save failed", err, "offset", offset)
	}

	appLog.Info("portal fetch success", "offset", offset, "bytes", len(body))
	return page, nil
}

// CachedWeek returns the last page fetched for offset, if any.
func (f *Fetcher) CachedWeek(offset int) (Page, error) {
	target := WeekURL(f.baseURL, offset)
	dir, err := f.cachePathForURL(target)
	if err != nil {
		return Page{}, err
	}
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return Page{}, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return Page{}, err
	}
	body, err := os.ReadFile(filepath.Join(dir, "body.html"))
	if err != nil {
		return Page{}, err
	}
	return Page{URL: target, Offset: offset, Body: string(body), FetchedAt: meta.UpdatedAt}, nil
}

func (f *Fetcher) cachePathForURL(u string) (string, error) {
	if f.cacheDir == "" {
		return "", errors.New("fetch cache disabled")
	}
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])), nil
}

func (f *Fetcher) saveCache(page Page, status int) error {
	if f.cacheDir == "" {
		return nil
	}
	dir, err := f.cachePathForURL(page.URL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.html"), []byte(page.Body), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cacheEntry{
		URL:       page.URL,
		Offset:    page.Offset,
		Status:    status,
		UpdatedAt: page.FetchedAt.UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// IsLoginURL reports whether u is the portal's login page.
func IsLoginURL(u string) bool {
	lower := strings.ToLower(u)
	for _, m := range loginMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// redactURL keeps only scheme and host of u for logging.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "portal://...(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
