package sums

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caretsuite/sumsync/internal/common"
)

const advancedSearchPath = "/sums/advancedsearch.do"

// SearchParams are the structured search inputs. Zero-valued fields
// are left out of the composed query. Species, Structure and Space
// only apply to spec-file searches.
type SearchParams struct {
	FileName  string
	FileType  string
	Comment   string
	Keyword   string
	DateMin   time.Time
	DateMax   time.Time
	Species   string
	Structure string
	Space     string
}

// queryString composes the advanced-search query in the order the
// server expects: filetype, then a property_label/property_value pair
// per non-empty field, decomposed date bounds, and caret_xml=yes last.
func (p SearchParams) queryString() string {
	var sb strings.Builder
	sb.WriteString("filetype=")
	sb.WriteString(url.QueryEscape(p.FileType))

	appendProperty := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString("&property_label=")
		sb.WriteString(url.QueryEscape(label))
		sb.WriteString("&property_value=")
		sb.WriteString(url.QueryEscape(value))
	}
	appendProperty("file_name", p.FileName)
	appendProperty("file_comment", p.Comment)
	appendProperty("keyword", p.Keyword)
	appendProperty("species", p.Species)
	appendProperty("structure", p.Structure)
	appendProperty("space", p.Space)

	if !p.DateMin.IsZero() {
		fmt.Fprintf(&sb, "&minMonth=%d&minDay=%d&minYear=%d",
			int(p.DateMin.Month()), p.DateMin.Day(), p.DateMin.Year())
	}
	if !p.DateMax.IsZero() {
		fmt.Fprintf(&sb, "&maxMonth=%d&maxDay=%d&maxYear=%d",
			int(p.DateMax.Month()), p.DateMax.Day(), p.DateMax.Year())
	}

	sb.WriteString("&caret_xml=yes")
	return sb.String()
}

// Search runs an advanced search and parses the XML response into a
// listing. An empty result set is reported as common.ErrNoMatches so
// callers can tell it from a transport failure.
func (s *Session) Search(ctx context.Context, params SearchParams) (*Listing, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	target := s.URL(advancedSearchPath + "?" + params.queryString())
	s.logger.Debug(ctx, "search", "url", target)

	resp, err := s.client.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("sums: search: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("sums: search: status %d", resp.Status)
	}

	listing, err := ParseListing(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(listing.Records) == 0 {
		return nil, common.ErrNoMatches
	}
	return listing, nil
}
