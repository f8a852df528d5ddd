package transparencia

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"sentinela/internal/logger"
	"sentinela/internal/models"
	"sentinela/internal/pkg/payslip"

	"github.com/PuerkitoBio/goquery"
)

const (
	detailPageMarker = "detalhar.php"
	// anchors with this many characters or fewer are icons and spacers
	minNameLength = 3
)

// ListEmployees returns the employee stubs published for a period. A period
// without disclosures yields an empty slice and no error.
func (c *Client) ListEmployees(ctx context.Context, period models.Period) ([]models.EmployeeStub, error) {
	listingURL := c.ListingURL(period)
	c.logger.DebugContext(ctx, "fetching listing", "period", period.String(), "url", listingURL)

	body, err := c.get(ctx, listingURL, c.opts.ListTimeout)
	if err != nil {
		return nil, err
	}

	return ParseListing(bytes.NewReader(body), c.baseURL, c.logger)
}

// ParseListing extracts detail-page anchors, resolving relative links against
// base and dropping repeated URLs. Markup that cannot be read is a
// payslip.ErrParse.
func ParseListing(r io.Reader, base *url.URL, log *slog.Logger) ([]models.EmployeeStub, error) {
	if log == nil {
		log = logger.Discard()
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: listing: %v", payslip.ErrParse, err)
	}
	if strings.Contains(doc.Text(), noResultsMarker) {
		return []models.EmployeeStub{}, nil
	}

	stubs := []models.EmployeeStub{}
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, detailPageMarker) {
			return
		}

		name := strings.TrimSpace(a.Text())
		if utf8.RuneCountInString(name) <= minNameLength {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			log.Warn("skipping malformed detail link", "href", href, "err", err)
			return
		}
		full := base.ResolveReference(ref).String()
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}

		stubs = append(stubs, models.EmployeeStub{
			Name:      strings.Join(strings.Fields(name), " "),
			DetailURL: full,
		})
	})

	return stubs, nil
}
