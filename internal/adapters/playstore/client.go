package playstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"review_radar/internal/adapters/storehttp"
	"review_radar/internal/domain"
)

const (
	DefaultBaseURL = "https://play.google.com"
	// PageSize is the number of reviews requested per batchexecute call.
	PageSize    = 200
	searchLimit = 20
	reviewsRPC  = "UsvDTd"
	sortNewest  = 2
)

// Options tune locale and paging; zero values fall back to Korean storefront defaults.
type Options struct {
	BaseURL  string
	Lang     string
	Country  string
	PageSize int
}

// Client scrapes the Google Play storefront. One attempt per call.
type Client struct {
	http     *storehttp.Client
	base     string
	lang     string
	country  string
	pageSize int
}

func New(hc *storehttp.Client, opt Options) *Client {
	c := &Client{http: hc, base: DefaultBaseURL, lang: "ko", country: "kr", pageSize: PageSize}
	if opt.BaseURL != "" {
		c.base = strings.TrimRight(opt.BaseURL, "/")
	}
	if opt.Lang != "" {
		c.lang = opt.Lang
	}
	if opt.Country != "" {
		c.country = opt.Country
	}
	if opt.PageSize > 0 {
		c.pageSize = opt.PageSize
	}
	return c
}

var _ domain.StoreClient = (*Client)(nil)

func (c *Client) locale() url.Values {
	return url.Values{"hl": {c.lang}, "gl": {c.country}}
}

/********** search **********/

func (c *Client) Search(ctx context.Context, query string) ([]domain.App, error) {
	q := c.locale()
	q.Set("q", query)
	q.Set("c", "apps")
	body, err := c.http.Get(ctx, "search", c.base+"/store/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	apps := make([]domain.App, 0, searchLimit)
	seen := map[string]bool{}
	doc.Find(`a[href*="/store/apps/details?id="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		id := appIDFromHref(a.AttrOr("href", ""))
		if id == "" || seen[id] {
			return true
		}
		name := strings.TrimSpace(a.Find("span").First().Text())
		if name == "" {
			name = strings.TrimSpace(a.Text())
		}
		if name == "" {
			// icon-only anchors precede the titled one
			return true
		}
		seen[id] = true
		apps = append(apps, domain.App{
			ID:    id,
			Name:  name,
			Icon:  a.Find("img").First().AttrOr("src", ""),
			Store: domain.StoreAndroid,
		})
		return len(apps) < searchLimit
	})
	return apps, nil
}

func appIDFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

/********** lookup **********/

func (c *Client) LookupApp(ctx context.Context, appID string) (domain.App, error) {
	q := c.locale()
	q.Set("id", appID)
	body, err := c.http.Get(ctx, "details", c.base+"/store/apps/details?"+q.Encode(), nil)
	if err != nil {
		if errors.Is(err, storehttp.ErrNotFound) {
			return domain.App{}, fmt.Errorf("%w: %s", domain.ErrInvalidAppID, appID)
		}
		return domain.App{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.App{}, fmt.Errorf("parse details page: %w", err)
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	app := domain.App{
		ID:        appID,
		Name:      name,
		Developer: strings.TrimSpace(doc.Find(`a[href*="/store/apps/dev"]`).First().Text()),
		Icon:      doc.Find(`meta[property="og:image"]`).AttrOr("content", ""),
		Store:     domain.StoreAndroid,
	}
	if v, ok := doc.Find(`meta[itemprop="ratingValue"]`).Attr("content"); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			app.Score = &f
		}
	}
	return app, nil
}

/********** reviews **********/

// FetchReviewsPage returns one newest-first page. The continuation token of
// the response becomes the next cursor; no token means the listing ended.
func (c *Client) FetchReviewsPage(ctx context.Context, appID string, cursor *string) (domain.ReviewsPage, error) {
	freq, err := c.reviewsRequest(appID, cursor)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	q := c.locale()
	q.Set("rpcids", reviewsRPC)
	body, err := c.http.PostForm(ctx, "reviews",
		c.base+"/_/PlayStoreUi/data/batchexecute?"+q.Encode(),
		url.Values{"f.req": {freq}})
	if err != nil {
		if errors.Is(err, storehttp.ErrNotFound) {
			return domain.ReviewsPage{}, fmt.Errorf("%w: %s", domain.ErrInvalidAppID, appID)
		}
		return domain.ReviewsPage{}, err
	}
	return parseReviews(body)
}

func (c *Client) reviewsRequest(appID string, cursor *string) (string, error) {
	var token any
	if cursor != nil {
		token = *cursor
	}
	inner, err := json.Marshal([]any{
		nil, nil,
		[]any{2, sortNewest, []any{c.pageSize, nil, token}, nil, []any{}},
		[]any{appID, 7},
	})
	if err != nil {
		return "", err
	}
	outer, err := json.Marshal([]any{[]any{[]any{reviewsRPC, string(inner), nil, "generic"}}})
	if err != nil {
		return "", err
	}
	return string(outer), nil
}

// parseReviews decodes a batchexecute envelope: an anti-XSSI prefix followed by
// a JSON array whose first frame carries the payload as a JSON string.
func parseReviews(body []byte) (domain.ReviewsPage, error) {
	s := string(body)
	if i := strings.Index(s, "\n"); strings.HasPrefix(s, ")]}'") && i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return domain.ReviewsPage{}, &domain.TransientError{Err: errors.New("playstore: malformed batchexecute response")}
	}

	payload := gjson.Get(s, "0.2")
	if !payload.Exists() || payload.Type == gjson.Null {
		// app has no reviews, or the rpc returned an empty frame
		return domain.ReviewsPage{}, nil
	}
	inner := gjson.Parse(payload.String())
	if !inner.IsArray() {
		return domain.ReviewsPage{}, fmt.Errorf("playstore: unexpected reviews payload")
	}

	var page domain.ReviewsPage
	inner.Get("0").ForEach(func(_, r gjson.Result) bool {
		page.Records = append(page.Records, domain.RawReviewRecord{
			"reviewId":      r.Get("0").Value(),
			"userName":      r.Get("1.0").Value(),
			"score":         r.Get("2").Value(),
			"content":       r.Get("4").Value(),
			"at":            r.Get("5.0").Value(),
			"thumbsUpCount": r.Get("6").Value(),
		})
		return true
	})

	page.NextCursor = continuationToken(inner.Array())
	return page, nil
}

// continuationToken finds the paging frame after the review list: an array
// ending in a non-empty string. Its position shifts between storefront builds.
func continuationToken(parts []gjson.Result) *string {
	for i := len(parts) - 1; i >= 1; i-- {
		frame := parts[i].Array()
		n := len(frame)
		if n == 0 || frame[n-1].Type != gjson.String || frame[n-1].String() == "" {
			continue
		}
		t := frame[n-1].String()
		return &t
	}
	return nil
}
