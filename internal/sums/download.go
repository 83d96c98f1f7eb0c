package sums

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/caretsuite/sumsync/internal/caretio"
	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/filex"
	"github.com/caretsuite/sumsync/internal/logging"
)

// RecentRecorder records local artifacts of a finished download so the
// next session can offer them back.
type RecentRecorder interface {
	AddRecentSpecFile(ctx context.Context, path string) error
	AddRecentOutputDir(ctx context.Context, path string) error
}

// Progress is reported once per finished (or failed) file.
type Progress struct {
	Index   int
	Total   int
	Name    string
	Elapsed time.Duration
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)

// DownloadError is the per-file failure kept when the pipeline moves
// on to the next record.
type DownloadError struct {
	Name string
	Err  error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// DownloadResult aggregates a pipeline run.
type DownloadResult struct {
	Downloaded []string
	Failed     []*DownloadError
}

// DownloadPipeline fetches the selected records of a listing into a
// local directory tree.
type DownloadPipeline struct {
	session  *Session
	recents  RecentRecorder
	logger   logging.Logger
	retries  int
	progress ProgressFunc
}

// NewDownloadPipeline wires a pipeline. recents and progress may be
// nil; retries below 1 means a single attempt per file.
func NewDownloadPipeline(session *Session, retries int, recents RecentRecorder, progress ProgressFunc, logger logging.Logger) *DownloadPipeline {
	if logger == nil {
		logger = logging.Nop{}
	}
	if retries < 1 {
		retries = 1
	}
	return &DownloadPipeline{
		session:  session,
		recents:  recents,
		logger:   logger,
		retries:  retries,
		progress: progress,
	}
}

// Run downloads every selected record of the listing under outDir,
// with commonPrefix (as returned by StripCommonSubdirectoryPrefix)
// appended first. The working directory is changed into the target
// for the duration and restored on every exit path. Cancellation is
// observed between files; a directory-creation failure aborts the
// whole run.
func (p *DownloadPipeline) Run(ctx context.Context, listing *Listing, outDir, commonPrefix string) (*DownloadResult, error) {
	if err := p.session.Refresh(ctx); err != nil {
		return nil, err
	}
	selected := listing.Selected()
	if len(selected) == 0 {
		return nil, common.ErrNothingSelected
	}

	target := outDir
	if commonPrefix != "" {
		target = filepath.Join(outDir, filepath.FromSlash(commonPrefix))
	}
	if err := os.MkdirAll(target, 0o750); err != nil {
		return nil, fmt.Errorf("sums: create output directory: %w", err)
	}

	saved, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("sums: getwd: %w", err)
	}
	if err := os.Chdir(target); err != nil {
		return nil, fmt.Errorf("sums: enter output directory: %w", err)
	}
	defer func() {
		if err := os.Chdir(saved); err != nil {
			p.logger.Warn(ctx, "restore working directory failed", "dir", saved, "error", err)
		}
	}()

	result := &DownloadResult{}
	start := time.Now()
	for i, record := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		localPath := record.FileName
		if record.Subdir != "" {
			dir := filepath.FromSlash(record.Subdir)
			if _, err := filex.EnsureSubDir(dir); err != nil {
				return result, fmt.Errorf("sums: create subdirectory %s: %w", dir, err)
			}
			localPath = filepath.Join(dir, record.FileName)
		}

		if err := p.downloadRecord(ctx, record, localPath); err != nil {
			p.logger.Error(ctx, "download failed", "file", record.Name(), "error", err)
			result.Failed = append(result.Failed, &DownloadError{Name: record.Name(), Err: err})
		} else {
			result.Downloaded = append(result.Downloaded, localPath)
			if p.recents != nil && strings.HasSuffix(localPath, caretio.SpecFileExtension) {
				if abs, absErr := filepath.Abs(localPath); absErr == nil {
					if recErr := p.recents.AddRecentSpecFile(ctx, abs); recErr != nil {
						p.logger.Warn(ctx, "record recent spec file failed", "error", recErr)
					}
				}
			}
		}

		if p.progress != nil {
			p.progress(Progress{
				Index:   i + 1,
				Total:   len(selected),
				Name:    record.Name(),
				Elapsed: time.Since(start),
			})
		}
	}

	if p.recents != nil && len(result.Downloaded) > 0 {
		if err := p.recents.AddRecentOutputDir(ctx, target); err != nil {
			p.logger.Warn(ctx, "record recent output directory failed", "error", err)
		}
	}
	return result, nil
}

// downloadRecord fetches one record to localPath, retrying transport
// failures and gzip size mismatches. Gzip-marked downloads land
// decompressed under their plain name.
func (p *DownloadPipeline) downloadRecord(ctx context.Context, record *Record, localPath string) error {
	target := p.session.baseURL + p.session.Splice(record.URL)

	backoff := retry.WithMaxRetries(uint64(p.retries-1), retry.NewConstant(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := p.session.client.Get(ctx, target)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !resp.Success {
			return retry.RetryableError(fmt.Errorf("status %d", resp.Status))
		}

		if !record.Gzipped() {
			return os.WriteFile(localPath, resp.Body, 0o640)
		}

		gzPath := localPath + ".gz"
		if err := os.WriteFile(gzPath, resp.Body, 0o640); err != nil {
			return err
		}
		n, err := gunzip(gzPath, localPath)
		_ = os.Remove(gzPath)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("decompress: %w", err))
		}
		if record.Size > 0 && n != record.Size {
			// A truncated transfer can still be a complete gzip frame.
			return retry.RetryableError(fmt.Errorf("size mismatch: got %d bytes, server reported %d", n, record.Size))
		}
		return nil
	})
}

func gunzip(srcPath, dstPath string) (int64, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, zr)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	return n, nil
}
