// Package common defines shared constants and sentinel errors used across
// the file framework and the SumsDB client layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// File framework errors.
	ErrUnknownFileType     = errors.New("unknown file type")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrFileExists          = errors.New("file exists and overwriting is disabled")

	// Session errors.
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrUploadNotAllowed = errors.New("account has no upload role")

	// Search errors.
	ErrNoMatches = errors.New("no files matched the search")

	// Remote errors. The archive reports failures as an <error>
	// document; the server's message is wrapped around this sentinel.
	ErrRemote = errors.New("archive reported an error")

	// Pipeline errors.
	ErrNothingSelected = errors.New("no files selected")
)
