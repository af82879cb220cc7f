package fetch

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"review_pulse/internal/adapters/observability"
	"review_pulse/internal/domain"
)

// Document is a downloaded CSV export.
type Document struct {
	Name        string
	ContentType string
	Body        []byte
}

type Client struct {
	hc           *http.Client
	rl           *rate.Limiter
	maxBytes     int64
	allowPrivate bool
}

type Option func(*Client)

// AllowPrivateNetworks lets the client reach loopback, private and
// link-local addresses. Off by default: import URLs come from API callers.
func AllowPrivateNetworks() Option {
	return func(c *Client) { c.allowPrivate = true }
}

func New(rps int, maxBytes int64, opts ...Option) *Client {
	if rps <= 0 {
		rps = 5
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	c := &Client{
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		maxBytes: maxBytes,
	}
	for _, o := range opts {
		o(c)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !c.allowPrivate {
		dialer.Control = refuseInternal
	}
	c.hc = &http.Client{
		Timeout: 20 * time.Second,
		// no Proxy: a proxy dial would bypass the address check
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
	return c
}

var (
	ErrTooLarge       = errors.New("fetch: body exceeds limit")
	ErrBlockedAddress = errors.New("fetch: address not allowed")
)

// Get downloads a CSV export. Shared spreadsheet links are tried through
// their CSV export endpoint first.
func (c *Client) Get(ctx context.Context, raw string) (Document, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Document{}, fmt.Errorf("fetch %q: %w", raw, domain.ErrNotCSV)
	}
	if ip, err := netip.ParseAddr(u.Hostname()); err == nil && !c.allowPrivate && isInternal(ip) {
		return Document{}, fmt.Errorf("fetch %q: %w", raw, ErrBlockedAddress)
	}
	return c.getFirst(ctx, candidates(u))
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// isInternal reports addresses an import must never reach.
func isInternal(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip)
}

// refuseInternal runs on the resolved address of every dial, so hostnames and
// redirects that land on internal addresses are refused too.
func refuseInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || isInternal(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

var sheetRe = regexp.MustCompile(`^/spreadsheets/d/([A-Za-z0-9_-]+)`)

func candidates(u *url.URL) []string {
	if u.Host == "docs.google.com" {
		if m := sheetRe.FindStringSubmatch(u.Path); m != nil {
			export := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1])
			if gid := u.Query().Get("gid"); gid != "" {
				export += "&gid=" + url.QueryEscape(gid)
			}
			return []string{export, u.String()}
		}
	}
	return []string{u.String()}
}

func (c *Client) getFirst(ctx context.Context, urls []string) (Document, error) {
	var last error
	for _, u := range urls {
		doc, err := c.get(ctx, u)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return Document{}, err
		}
		return doc, nil
	}
	if last != nil {
		return Document{}, last
	}
	return Document{}, errors.New("no candidate URL succeeded")
}

// get performs a GET with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, u string) (Document, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return Document{}, err
	}

	start := time.Now()
	status := "none"
	defer func() { observability.ObserveExternal("fetch", hostOf(u), status, time.Since(start)) }()

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return Document{}, err
		}
		req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
		req.Header.Set("User-Agent", "review-pulse/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			status = observability.LabelErr(err)
			if errors.Is(err, ErrBlockedAddress) {
				status = "blocked"
				return Document{}, err
			}
			if ctx.Err() != nil {
				return Document{}, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return Document{}, ctx.Err()
			}
			return Document{}, lastErr
		}
		status = strconv.Itoa(resp.StatusCode)

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
			resp.Body.Close()
			if err != nil {
				return Document{}, fmt.Errorf("read %s: %w", u, err)
			}
			if int64(len(b)) > c.maxBytes {
				return Document{}, ErrTooLarge
			}
			return Document{Name: nameOf(resp.Request.URL), ContentType: resp.Header.Get("Content-Type"), Body: b}, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return Document{}, domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return Document{}, domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return Document{}, domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return Document{}, ctx.Err()
			}
			return Document{}, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return Document{}, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return Document{}, lastErr
}

func hostOf(u string) string {
	if p, err := url.Parse(u); err == nil {
		return p.Host
	}
	return "unknown"
}

func nameOf(u *url.URL) string {
	if u == nil {
		return "remote.csv"
	}
	if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
		if base == "export" {
			return u.Host + ".csv"
		}
		return base
	}
	return u.Host
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
