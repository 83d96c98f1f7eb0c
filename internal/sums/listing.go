package sums

import (
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/caretsuite/sumsync/internal/common"
)

// Record is one file known to the archive. All fields except Selected
// are fixed once parsed from the search response.
type Record struct {
	ID       string
	Date     time.Time
	TypeTag  string
	Subdir   string
	FileName string
	Comment  string
	State    string
	Size     int64
	URL      string
	Selected bool
}

// Name is the record's file name including its subdirectory prefix.
func (r *Record) Name() string {
	if r.Subdir == "" {
		return r.FileName
	}
	return path.Join(r.Subdir, r.FileName)
}

// Gzipped reports whether the record's download URL carries the marker
// telling the server to gzip-encode the payload.
func (r *Record) Gzipped() bool {
	return strings.Contains(r.URL, "downloadgzip")
}

// Listing is an ordered sequence of records with the sort and
// selection operations the dialogue offers.
type Listing struct {
	Records []*Record
}

// SortByDate orders records newest first; ties keep their order.
func (l *Listing) SortByDate() {
	sort.SliceStable(l.Records, func(i, j int) bool {
		return l.Records[i].Date.After(l.Records[j].Date)
	})
}

// SortByName orders records by full name; ties keep their order.
func (l *Listing) SortByName() {
	sort.SliceStable(l.Records, func(i, j int) bool {
		return l.Records[i].Name() < l.Records[j].Name()
	})
}

// SortByType orders records by type tag; ties keep their order.
func (l *Listing) SortByType() {
	sort.SliceStable(l.Records, func(i, j int) bool {
		return l.Records[i].TypeTag < l.Records[j].TypeTag
	})
}

// SetAllSelected marks every record.
func (l *Listing) SetAllSelected(selected bool) {
	for _, r := range l.Records {
		r.Selected = selected
	}
}

// Selected returns the selected records in listing order.
func (l *Listing) Selected() []*Record {
	var out []*Record
	for _, r := range l.Records {
		if r.Selected {
			out = append(out, r)
		}
	}
	return out
}

// StripCommonSubdirectoryPrefix finds the longest directory prefix
// shared by every record's subdirectory, removes it from each record,
// and returns it so the caller can append it to the output directory.
// Returns "" when the records do not share one.
func (l *Listing) StripCommonSubdirectoryPrefix() string {
	if len(l.Records) == 0 {
		return ""
	}
	var common []string
	for i, r := range l.Records {
		if r.Subdir == "" {
			return ""
		}
		parts := strings.Split(r.Subdir, "/")
		if i == 0 {
			common = parts
			continue
		}
		common = commonPrefix(common, parts)
		if len(common) == 0 {
			return ""
		}
	}
	prefix := strings.Join(common, "/")
	for _, r := range l.Records {
		r.Subdir = strings.TrimPrefix(strings.TrimPrefix(r.Subdir, prefix), "/")
	}
	return prefix
}

func commonPrefix(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}

// listingDateLayout is the date form the archive emits in listings.
const listingDateLayout = "2006-01-02 15:04:05"

type xmlFileList struct {
	XMLName xml.Name      `xml:"sums_file_list"`
	Files   []xmlFileItem `xml:"file"`
}

// xmlRemoteError is the document the archive answers with when an
// operation fails server-side; the message is its character data.
type xmlRemoteError struct {
	XMLName xml.Name `xml:"error"`
	Message string   `xml:",chardata"`
}

type xmlFileItem struct {
	ID      string `xml:"id"`
	Date    string `xml:"date"`
	Type    string `xml:"type"`
	Name    string `xml:"name"`
	Comment string `xml:"comment"`
	State   string `xml:"state"`
	Size    int64  `xml:"size"`
	URL     string `xml:"url"`
}

// ParseListing decodes the archive's XML file listing. An <error>
// document surfaces as common.ErrRemote carrying the server's message.
// Record names split into subdirectory and basename on the last slash;
// unparseable dates become the zero time rather than failing the whole
// listing.
func ParseListing(data []byte) (*Listing, error) {
	var remote xmlRemoteError
	if xml.Unmarshal(data, &remote) == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrRemote, strings.TrimSpace(remote.Message))
	}

	var doc xmlFileList
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sums: parse listing: %w", err)
	}
	listing := &Listing{}
	for _, item := range doc.Files {
		r := &Record{
			ID:      item.ID,
			TypeTag: item.Type,
			Comment: item.Comment,
			State:   item.State,
			Size:    item.Size,
			URL:     item.URL,
		}
		if i := strings.LastIndex(item.Name, "/"); i >= 0 {
			r.Subdir, r.FileName = item.Name[:i], item.Name[i+1:]
		} else {
			r.FileName = item.Name
		}
		if ts, err := time.Parse(listingDateLayout, item.Date); err == nil {
			r.Date = ts
		}
		listing.Records = append(listing.Records, r)
	}
	return listing, nil
}
