package cli

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/species"
	"github.com/caretsuite/sumsync/internal/sums"
)

func (a *App) search(ctx context.Context) {
	params := sums.SearchParams{}

	var err error
	if params.FileType, err = GetSimpleText(a.reader, "File type extension (e.g. spec, coord; empty for any)", os.Stdout); err != nil {
		failure("error: %v", err)
		return
	}
	if params.FileName, err = GetSimpleText(a.reader, "File name contains (empty to skip)", os.Stdout); err != nil {
		failure("error: %v", err)
		return
	}
	if params.Keyword, err = GetSimpleText(a.reader, "Keyword (empty to skip)", os.Stdout); err != nil {
		failure("error: %v", err)
		return
	}

	if params.FileType == "spec" {
		sp, err := GetSimpleText(a.reader, "Species (default "+species.Default()+")", os.Stdout)
		if err != nil {
			failure("error: %v", err)
			return
		}
		if sp == "" {
			sp = species.Default()
		}
		if !species.Valid(sp) {
			warning("unknown species %q, searching anyway", sp)
		}
		params.Species = sp
		if params.Structure, err = GetSimpleText(a.reader, "Structure (left/right/both; empty to skip)", os.Stdout); err != nil {
			failure("error: %v", err)
			return
		}
		if params.Space, err = GetSimpleText(a.reader, "Stereotaxic space (empty to skip)", os.Stdout); err != nil {
			failure("error: %v", err)
			return
		}
	}

	listing, err := a.session.Search(ctx, params)
	if err != nil {
		if errors.Is(err, common.ErrNoMatches) {
			warning("no files matched")
		} else {
			failure("search failed: %v", err)
		}
		return
	}

	a.listing = listing
	a.commonPrefix = ""
	success("%d files found", len(listing.Records))
	printListing(listing)
}

func (a *App) list() {
	if a.listing == nil {
		warning("no listing; run 'search' first")
		return
	}
	printListing(a.listing)
}

func (a *App) sortListing(args []string) {
	if a.listing == nil {
		warning("no listing; run 'search' first")
		return
	}
	key := "date"
	if len(args) > 0 {
		key = args[0]
	}
	switch key {
	case "date":
		a.listing.SortByDate()
	case "name":
		a.listing.SortByName()
	case "type":
		a.listing.SortByType()
	default:
		warning("usage: sort [date|name|type]")
		return
	}
	printListing(a.listing)
}

// selectRows toggles selection: "select all", "select none", or
// "select 1 3 5" with one-based row numbers from the printed listing.
func (a *App) selectRows(args []string) {
	if a.listing == nil {
		warning("no listing; run 'search' first")
		return
	}
	if len(args) == 0 {
		warning("usage: select all|none|<row numbers>")
		return
	}
	switch args[0] {
	case "all":
		a.listing.SetAllSelected(true)
	case "none":
		a.listing.SetAllSelected(false)
	default:
		for _, arg := range args {
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil || n < 1 || n > len(a.listing.Records) {
				warning("no such row: %s", arg)
				continue
			}
			r := a.listing.Records[n-1]
			r.Selected = !r.Selected
		}
	}
	printListing(a.listing)
}
