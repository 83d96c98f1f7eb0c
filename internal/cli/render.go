package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/caretsuite/sumsync/internal/sums"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func success(format string, args ...any) { green.Printf(format+"\n", args...) }
func warning(format string, args ...any) { yellow.Printf(format+"\n", args...) }
func failure(format string, args ...any) { red.Printf(format+"\n", args...) }

func printListing(listing *sums.Listing) {
	fmt.Printf("%-4s %-3s %-10s %-12s %-9s %s\n", "#", "sel", "date", "type", "size", "name")
	for i, r := range listing.Records {
		mark := " "
		if r.Selected {
			mark = "*"
		}
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format("2006-01-02")
		}
		fmt.Printf("%-4d %-3s %-10s %-12s %-9d %s\n", i+1, mark, date, r.TypeTag, r.Size, r.Name())
	}
}

func printUploadOutcomes(outcomes []sums.UploadOutcome) {
	var failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			failure("  %s (%s): %v", o.Entry.RemoteName, o.Entry.Kind, o.Err)
			continue
		}
		success("  %s (%s): id %s", o.Entry.RemoteName, o.Entry.Kind, o.ID)
	}
	if failed == 0 {
		success("all %d files uploaded", len(outcomes))
	} else {
		warning("%d of %d files failed", failed, len(outcomes))
	}
}
