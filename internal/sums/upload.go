package sums

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/caretsuite/sumsync/internal/caretio"
	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/logging"
	"github.com/caretsuite/sumsync/internal/specfile"
	"github.com/caretsuite/sumsync/internal/volume"
)

const uploadPath = "/sums/caretupload.do"

// EntryKind classifies an upload entry for the parent-id chaining the
// server performs.
type EntryKind int

const (
	KindStandalone EntryKind = iota
	KindSpecParent
	KindSpecChild
)

func (k EntryKind) String() string {
	switch k {
	case KindSpecParent:
		return "spec-parent"
	case KindSpecChild:
		return "spec-child"
	default:
		return "standalone"
	}
}

// UploadEntry is one file scheduled for upload. LocalPath may point at
// a transient rewrite; RemoteName is the basename presented to the
// server.
type UploadEntry struct {
	Kind       EntryKind
	LocalPath  string
	RemoteName string
}

// UploadOutcome records, per entry in upload order, the server id on
// success or the error on failure.
type UploadOutcome struct {
	Entry UploadEntry
	ID    string
	Err   error
}

// UploadPipeline expands, verifies and uploads a user-chosen set of
// files. askExpandSpec is consulted once per spec file; nil means
// never expand.
type UploadPipeline struct {
	session       *Session
	opts          caretio.Options
	logger        logging.Logger
	askExpandSpec func(specPath string) bool

	transients []string
	specSerial int
}

// NewUploadPipeline wires an upload pipeline against the session.
func NewUploadPipeline(session *Session, opts caretio.Options, askExpandSpec func(string) bool, logger logging.Logger) *UploadPipeline {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &UploadPipeline{
		session:       session,
		opts:          opts,
		logger:        logger,
		askExpandSpec: askExpandSpec,
	}
}

// Upload runs the whole pipeline for the given files: spec expansion,
// volume sibling resolution, existence check, ordered upload, and
// transient cleanup (which happens regardless of the outcome).
func (p *UploadPipeline) Upload(ctx context.Context, files []string, comment string) ([]UploadOutcome, error) {
	defer p.Cleanup()

	if !p.session.UploadPermitted() {
		return nil, common.ErrUploadNotAllowed
	}
	if err := p.session.Refresh(ctx); err != nil {
		return nil, err
	}

	entries, err := p.Prepare(files)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, entries, comment), nil
}

// Prepare performs the local stages: expand spec files into parent and
// child entries, resolve volume data-file siblings, and verify that
// every scheduled file exists. Nothing is uploaded when any file is
// missing.
func (p *UploadPipeline) Prepare(files []string) ([]UploadEntry, error) {
	entries, err := p.expandSpecFiles(files)
	if err != nil {
		return nil, err
	}
	entries, err = p.resolveVolumeSiblings(entries)
	if err != nil {
		return nil, err
	}
	if err := checkEntriesExist(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// expandSpecFiles turns each input file into one or more entries. A
// spec file the user opts to expand becomes a spec-parent entry (a
// transient copy with all references stripped to basenames) followed
// by a spec-child entry per referenced data file.
func (p *UploadPipeline) expandSpecFiles(files []string) ([]UploadEntry, error) {
	var entries []UploadEntry
	for _, file := range files {
		if !caretio.IsSpecFile(file) || p.askExpandSpec == nil || !p.askExpandSpec(file) {
			entries = append(entries, UploadEntry{
				Kind:       KindStandalone,
				LocalPath:  file,
				RemoteName: filepath.Base(file),
			})
			continue
		}

		model := specfile.New(p.opts)
		if err := model.Read(file); err != nil {
			return nil, fmt.Errorf("sums: read spec file %s: %w", file, err)
		}
		references := model.AllDataFiles(nil)

		model.StripPaths()
		p.specSerial++
		// Transient copies live in the working directory.
		transient := fmt.Sprintf("temp_spec_file_for_upload_%d%s", p.specSerial, caretio.SpecFileExtension)
		_ = os.Remove(transient)
		if err := model.Write(transient); err != nil {
			return nil, fmt.Errorf("sums: write transient spec file: %w", err)
		}
		p.transients = append(p.transients, transient)

		entries = append(entries, UploadEntry{
			Kind:       KindSpecParent,
			LocalPath:  transient,
			RemoteName: filepath.Base(file),
		})
		dir := filepath.Dir(file)
		for _, ref := range references {
			local := ref
			if !filepath.IsAbs(local) {
				local = filepath.Join(dir, local)
			}
			entries = append(entries, UploadEntry{
				Kind:       KindSpecChild,
				LocalPath:  local,
				RemoteName: filepath.Base(ref),
			})
		}
	}
	return entries, nil
}

// resolveVolumeSiblings inserts the data half of every header-plus-data
// volume pair directly after its header entry. When the plain data
// file is absent but its ".gz" twin exists, the twin is used; when the
// plain twin is already scheduled, it is replaced in place so only one
// of the pair uploads.
func (p *UploadPipeline) resolveVolumeSiblings(entries []UploadEntry) ([]UploadEntry, error) {
	for i := 0; i < len(entries); i++ {
		e := entries[i]
		if !volume.IsHeaderFile(e.LocalPath) {
			continue
		}
		dataPath, err := volume.ResolveDataFile(e.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("sums: resolve volume data for %s: %w", e.LocalPath, err)
		}
		plain := strings.TrimSuffix(dataPath, ".gz")

		scheduled := false
		for j := range entries {
			if entries[j].LocalPath == dataPath {
				scheduled = true
				break
			}
			if dataPath != plain && entries[j].LocalPath == plain {
				entries[j].LocalPath = dataPath
				entries[j].RemoteName = filepath.Base(dataPath)
				scheduled = true
				break
			}
		}
		if !scheduled {
			entries = slices.Insert(entries, i+1, UploadEntry{
				Kind:       e.Kind,
				LocalPath:  dataPath,
				RemoteName: filepath.Base(dataPath),
			})
		}
	}
	return entries, nil
}

// checkEntriesExist fails with a message naming every missing file.
func checkEntriesExist(entries []UploadEntry) error {
	var missing []string
	for _, e := range entries {
		if _, err := os.Stat(e.LocalPath); err != nil {
			missing = append(missing, fmt.Sprintf("%s (in %s)", filepath.Base(e.LocalPath), filepath.Dir(e.LocalPath)))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("sums: files not found, remove them from the spec file before uploading:\n  %s",
		strings.Join(missing, "\n  "))
}

// Run uploads the entries in order. A spec-parent's returned id is
// carried and attached as parent_id to the spec-child entries that
// follow it; a standalone entry clears the carry. Per-entry failures
// do not stop the run; a failed spec-parent means its children upload
// without a parent_id.
func (p *UploadPipeline) Run(ctx context.Context, entries []UploadEntry, comment string) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(entries))
	lastSpecParentID := ""

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, UploadOutcome{Entry: entry, Err: err})
			continue
		}

		localPath := entry.LocalPath
		if caretio.IsSceneFile(localPath) {
			rewritten, err := p.rewriteScene(localPath)
			if err != nil {
				outcomes = append(outcomes, UploadOutcome{Entry: entry, Err: err})
				continue
			}
			localPath = rewritten
		}

		id, err := p.uploadOne(ctx, entry, localPath, comment, lastSpecParentID)
		if err != nil {
			p.logger.Error(ctx, "upload failed", "file", entry.RemoteName, "kind", entry.Kind.String(), "error", err)
			outcomes = append(outcomes, UploadOutcome{Entry: entry, Err: err})
			continue
		}

		switch entry.Kind {
		case KindSpecParent:
			lastSpecParentID = id
		case KindStandalone:
			lastSpecParentID = ""
		}
		p.logger.Info(ctx, "uploaded", "file", entry.RemoteName, "id", id, "kind", entry.Kind.String())
		outcomes = append(outcomes, UploadOutcome{Entry: entry, ID: id})
	}
	return outcomes
}

func (p *UploadPipeline) uploadOne(ctx context.Context, entry UploadEntry, localPath, comment, parentID string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}

	fields := map[string]string{
		"comment":  comment,
		"filename": entry.RemoteName,
	}
	if entry.Kind == KindSpecChild && parentID != "" {
		fields["parent_id"] = parentID
	}

	target := p.session.baseURL + p.session.Splice(uploadPath)
	resp, err := p.session.client.PostMultipart(ctx, target, "file", entry.RemoteName, data, fields)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("status %d", resp.Status)
	}

	listing, err := ParseListing(resp.Body)
	if err != nil {
		return "", err
	}
	if len(listing.Records) != 1 {
		return "", fmt.Errorf("expected one record in upload response, got %d", len(listing.Records))
	}
	return listing.Records[0].ID, nil
}

// rewriteScene strips embedded data-file paths from a scene file into
// a transient copy in the working directory and returns the copy's
// path.
func (p *UploadPipeline) rewriteScene(path string) (string, error) {
	transient := "temp_scene_file_for_sums" + caretio.SceneFileExtension
	if err := specfile.RewriteScenePaths(path, transient); err != nil {
		return "", fmt.Errorf("sums: rewrite scene file %s: %w", path, err)
	}
	if !slices.Contains(p.transients, transient) {
		p.transients = append(p.transients, transient)
	}
	return transient, nil
}

// Cleanup removes every transient file the pipeline created. Safe to
// call more than once.
func (p *UploadPipeline) Cleanup() {
	for _, path := range p.transients {
		_ = os.Remove(path)
	}
	p.transients = nil
}
