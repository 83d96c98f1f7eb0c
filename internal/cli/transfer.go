package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/caretsuite/sumsync/internal/sums"
)

func (a *App) download(ctx context.Context, args []string) {
	if a.listing == nil {
		warning("no listing; run 'search' first")
		return
	}
	if len(a.listing.Selected()) == 0 {
		warning("nothing selected; use 'select'")
		return
	}

	outDir := ""
	if len(args) > 0 {
		outDir = args[0]
	} else {
		var err error
		if outDir, err = GetSimpleText(a.reader, "Output directory", os.Stdout); err != nil {
			failure("error: %v", err)
			return
		}
	}
	if outDir == "" {
		warning("usage: download <directory>")
		return
	}

	// Shared leading directories move from the records into the
	// output path.
	prefix := a.listing.StripCommonSubdirectoryPrefix()
	if prefix != "" {
		a.commonPrefix = prefix
	}

	pipeline := sums.NewDownloadPipeline(a.session, a.config.Sums.DownloadRetries, a.store,
		func(ev sums.Progress) {
			fmt.Printf("  [%d/%d] %s (%.1fs elapsed)\n", ev.Index, ev.Total, ev.Name, ev.Elapsed.Seconds())
		}, a.logger)

	result, err := pipeline.Run(ctx, a.listing, outDir, a.commonPrefix)
	if err != nil {
		failure("download aborted: %v", err)
		return
	}
	for _, f := range result.Failed {
		failure("  failed: %v", f)
	}
	success("%d files downloaded to %s", len(result.Downloaded), outDir)
}

func (a *App) upload(ctx context.Context, args []string) {
	if len(args) == 0 {
		warning("usage: upload <file> [file...]")
		return
	}
	if !a.session.UploadPermitted() {
		warning("this session may not upload")
		return
	}

	comment, err := GetMultiline(a.reader, "Comment for these files", os.Stdout)
	if err != nil {
		failure("error: %v", err)
		return
	}

	askExpand := func(specPath string) bool {
		answer, err := GetSimpleText(a.reader,
			fmt.Sprintf("Also upload the data files %s references? [y/N]", specPath), os.Stdout)
		if err != nil {
			return false
		}
		return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
	}

	pipeline := sums.NewUploadPipeline(a.session, a.opts, askExpand, a.logger)
	outcomes, err := pipeline.Upload(ctx, args, comment)
	if err != nil {
		failure("upload aborted: %v", err)
		return
	}
	printUploadOutcomes(outcomes)
}

func (a *App) recent(ctx context.Context) {
	specs, err := a.store.RecentSpecFiles(ctx)
	if err != nil {
		failure("error: %v", err)
		return
	}
	dirs, err := a.store.RecentOutputDirs(ctx)
	if err != nil {
		failure("error: %v", err)
		return
	}

	if len(specs) == 0 && len(dirs) == 0 {
		warning("no recent files yet")
		return
	}
	if len(specs) > 0 {
		fmt.Println("Recent spec files:")
		for _, s := range specs {
			fmt.Println("  " + s)
		}
	}
	if len(dirs) > 0 {
		fmt.Println("Recent output directories:")
		for _, d := range dirs {
			fmt.Println("  " + d)
		}
	}
}
