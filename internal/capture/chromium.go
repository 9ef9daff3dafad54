package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/portal"
)

// DefaultTimeout bounds a whole browser fetch.
const DefaultTimeout = 30 * time.Second

// Options configures a Browser.
type Options struct {
	// BaseURL is the timetable page of the current week.
	BaseURL string
	// CookiesPath is the cookie file written at login.
	CookiesPath string
	// ExecPath optionally selects the Chromium binary.
	ExecPath string
	// Timeout bounds the entire fetch. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Browser fetches timetable pages through headless Chromium, replaying the
// stored session cookies. It is used when the portal renders the timetable
// with scripts that a plain HTTP fetch does not run.
type Browser struct {
	opts Options
}

// NewBrowser returns a Browser for opts.
func NewBrowser(opts Options) *Browser {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Browser{opts: opts}
}

// FetchWeek navigates to the page of week offset and returns the rendered
// body markup.
func (b *Browser) FetchWeek(parentCtx context.Context, offset int) (portal.Page, error) {
	cookies, err := portal.LoadCookies(b.opts.CookiesPath)
	if err != nil {
		return portal.Page{}, fmt.Errorf("capture: load cookies: %w", err)
	}
	if len(cookies) == 0 {
		return portal.Page{}, portal.ErrNoCookies
	}
	if b.opts.BaseURL == "" {
		return portal.Page{}, fmt.Errorf("capture: BaseURL is required")
	}

	target := portal.WeekURL(b.opts.BaseURL, offset)

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer timeoutCancel()

	appLog.Info("capture fetch start", "offset", offset)

	var body, location string
	tasks := chromedp.Tasks{
		setCookies(cookies, target),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.Evaluate(`document.body.innerHTML`, &body),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return portal.Page{}, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	if portal.IsLoginURL(location) {
		return portal.Page{}, portal.ErrLoginRequired
	}

	appLog.Info("capture fetch success", "offset", offset, "bytes", len(body))
	return portal.Page{URL: target, Offset: offset, Body: body, FetchedAt: time.Now()}, nil
}

func setCookies(cookies []portal.Cookie, target string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			if c.Name == "" {
				continue
			}
			p := network.SetCookie(c.Name, c.Value).WithSecure(c.Secure)
			if c.Domain != "" {
				path := c.Path
				if path == "" {
					path = "/"
				}
				p = p.WithDomain(c.Domain).WithPath(path)
			} else {
				p = p.WithURL(target)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}
