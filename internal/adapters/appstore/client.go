package appstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"review_radar/internal/adapters/storehttp"
	"review_radar/internal/domain"
)

const (
	DefaultBaseURL = "https://itunes.apple.com"
	// MaxFeedPages is the deepest customer-reviews page Apple serves.
	MaxFeedPages = 10
	searchLimit  = 20
)

type Options struct {
	BaseURL string
	Country string
	// Fallback storefronts are read, in order, when the previous one has no
	// reviews at all. nil means "us".
	Fallback []string
}

// Client talks to the iTunes Search/Lookup APIs and the customer-reviews feed.
type Client struct {
	http    *storehttp.Client
	base    string
	country string
	// storefronts is country followed by the fallbacks.
	storefronts []string
	strip       *bluemonday.Policy
}

func New(hc *storehttp.Client, opt Options) *Client {
	c := &Client{http: hc, base: DefaultBaseURL, country: "kr", strip: bluemonday.StrictPolicy()}
	if opt.BaseURL != "" {
		c.base = strings.TrimRight(opt.BaseURL, "/")
	}
	if opt.Country != "" {
		c.country = strings.ToLower(opt.Country)
	}
	fallback := opt.Fallback
	if fallback == nil {
		fallback = []string{"us"}
	}
	c.storefronts = []string{c.country}
	for _, f := range fallback {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(c.storefronts, f) {
			c.storefronts = append(c.storefronts, f)
		}
	}
	return c
}

var _ domain.StoreClient = (*Client)(nil)

type lookupResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID           int64    `json:"trackId"`
		TrackName         string   `json:"trackName"`
		ArtistName        string   `json:"artistName"`
		AverageUserRating *float64 `json:"averageUserRating"`
		ArtworkURL100     string   `json:"artworkUrl100"`
	} `json:"results"`
}

func (r lookupResponse) apps() []domain.App {
	out := make([]domain.App, 0, len(r.Results))
	for _, it := range r.Results {
		if it.TrackID == 0 {
			continue
		}
		out = append(out, domain.App{
			ID:        strconv.FormatInt(it.TrackID, 10),
			Name:      it.TrackName,
			Developer: it.ArtistName,
			Score:     it.AverageUserRating,
			Icon:      it.ArtworkURL100,
			Store:     domain.StoreIOS,
		})
	}
	return out
}

func (c *Client) getLookup(ctx context.Context, endpoint, path string, q url.Values) (lookupResponse, error) {
	body, err := c.http.Get(ctx, endpoint, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return lookupResponse{}, err
	}
	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return lookupResponse{}, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return lr, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]domain.App, error) {
	lr, err := c.getLookup(ctx, "search", "/search", url.Values{
		"term":    {query},
		"entity":  {"software"},
		"country": {strings.ToUpper(c.country)},
		"limit":   {strconv.Itoa(searchLimit)},
	})
	if err != nil {
		return nil, err
	}
	return lr.apps(), nil
}

func (c *Client) LookupApp(ctx context.Context, appID string) (domain.App, error) {
	lr, err := c.getLookup(ctx, "lookup", "/lookup", url.Values{
		"id":      {appID},
		"country": {strings.ToUpper(c.country)},
	})
	if err != nil {
		if errors.Is(err, storehttp.ErrNotFound) {
			return domain.App{}, fmt.Errorf("%w: %s", domain.ErrInvalidAppID, appID)
		}
		return domain.App{}, err
	}
	apps := lr.apps()
	if lr.ResultCount == 0 || len(apps) == 0 {
		return domain.App{}, fmt.Errorf("%w: %s", domain.ErrInvalidAppID, appID)
	}
	return apps[0], nil
}

// FetchReviewsPage reads one page of the most-recent customer-reviews feed.
// The cursor is the next page number, prefixed with "cc:" once a fallback
// storefront is in use. It is nil after the last page Apple serves or when a
// page comes back empty. A storefront whose first page is empty hands over to
// the next one.
func (c *Client) FetchReviewsPage(ctx context.Context, appID string, cursor *string) (domain.ReviewsPage, error) {
	country, page, err := c.parseCursor(cursor)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	for {
		out, err := c.fetchFeed(ctx, appID, country, page)
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		if len(out.Records) == 0 && page == 1 {
			if next := c.nextStorefront(country); next != "" {
				country = next
				continue
			}
		}
		if len(out.Records) > 0 && page < MaxFeedPages {
			next := c.cursorFor(country, page+1)
			out.NextCursor = &next
		}
		return out, nil
	}
}

func (c *Client) parseCursor(cursor *string) (string, int, error) {
	if cursor == nil {
		return c.country, 1, nil
	}
	country, num := c.country, *cursor
	if cc, n, ok := strings.Cut(*cursor, ":"); ok {
		country, num = cc, n
	}
	page, err := strconv.Atoi(num)
	if err != nil || page < 1 || !slices.Contains(c.storefronts, country) {
		return "", 0, fmt.Errorf("appstore: bad cursor %q", *cursor)
	}
	return country, page, nil
}

func (c *Client) cursorFor(country string, page int) string {
	if country == c.country {
		return strconv.Itoa(page)
	}
	return country + ":" + strconv.Itoa(page)
}

func (c *Client) nextStorefront(country string) string {
	i := slices.Index(c.storefronts, country)
	if i < 0 || i+1 >= len(c.storefronts) {
		return ""
	}
	return c.storefronts[i+1]
}

func (c *Client) fetchFeed(ctx context.Context, appID, country string, page int) (domain.ReviewsPage, error) {
	u := fmt.Sprintf("%s/%s/rss/customerreviews/page=%d/id=%s/sortby=mostrecent/xml",
		c.base, url.PathEscape(country), page, url.PathEscape(appID))
	body, err := c.http.Get(ctx, "reviews", u, nil)
	if err != nil {
		if errors.Is(err, storehttp.ErrNotFound) {
			return domain.ReviewsPage{}, fmt.Errorf("%w: %s", domain.ErrInvalidAppID, appID)
		}
		return domain.ReviewsPage{}, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return domain.ReviewsPage{}, &domain.TransientError{Err: fmt.Errorf("appstore: parse feed: %w", err)}
	}

	var out domain.ReviewsPage
	for _, it := range feed.Items {
		rating := extValue(it.Extensions, "rating")
		if rating == "" {
			// the first entry of some feeds describes the app itself
			continue
		}
		rec := domain.RawReviewRecord{
			"id":         it.GUID,
			"text":       c.plain(it.Content, it.Description),
			"im:rating":  rating,
			"im:voteSum": extValue(it.Extensions, "voteSum"),
		}
		if it.Author != nil {
			rec["author"] = it.Author.Name
		}
		if it.UpdatedParsed != nil {
			rec["updated"] = *it.UpdatedParsed
		} else {
			rec["updated"] = it.Updated
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// plain strips markup from the first non-empty body and unescapes entities.
// Feeds sometimes escape html content twice, so a second pass runs when the
// first one surfaces new tags.
func (c *Client) plain(bodies ...string) string {
	for _, b := range bodies {
		if strings.TrimSpace(b) == "" {
			continue
		}
		s := html.UnescapeString(c.strip.Sanitize(b))
		if strings.ContainsRune(s, '<') {
			s = html.UnescapeString(c.strip.Sanitize(s))
		}
		return strings.TrimSpace(s)
	}
	return ""
}

// extValue reads an <im:name> element value.
func extValue(exts ext.Extensions, name string) string {
	if exts == nil {
		return ""
	}
	for _, e := range exts["im"][name] {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
