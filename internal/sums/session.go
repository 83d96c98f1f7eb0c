// Package sums speaks the SumsDB archive dialogue: cookie-based
// sessions, advanced search, and the download and upload pipelines.
package sums

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/httpx"
	"github.com/caretsuite/sumsync/internal/logging"
)

const (
	logonPath         = "/sums/logon.do"
	securityCheckPath = "/sums/login/j_security_check"
	logoffPath        = "/sums/dispatch.do?forward=logoff"
	uploadRole        = "upload"
)

// UserRecord describes the authenticated user as reported by the
// archive after login.
type UserRecord struct {
	Login           string
	Name            string
	Usage           int64
	Quota           int64
	Roles           []string
	UploadPermitted bool
}

type xmlUser struct {
	XMLName xml.Name `xml:"sums"`
	User    struct {
		Login string   `xml:"login"`
		Name  string   `xml:"username"`
		Usage int64    `xml:"usage"`
		Quota int64    `xml:"quota"`
		Roles []string `xml:"role"`
	} `xml:"user"`
}

// Session holds the archive conversation state: the session id handed
// out on the first request, the raw cookie it arrived in, and the user
// record produced by a full login.
type Session struct {
	client  *httpx.Client
	logger  logging.Logger
	baseURL string

	loginBeforeOperation bool

	sessionID string
	visitor   bool
	loggedIn  bool
	user      *UserRecord

	username string
	password string
}

// NewSession builds a session against baseURL (no trailing slash).
func NewSession(client *httpx.Client, baseURL string, loginBeforeOperation bool, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Session{
		client:               client,
		logger:               logger,
		baseURL:              strings.TrimSuffix(baseURL, "/"),
		loginBeforeOperation: loginBeforeOperation,
	}
}

// SpliceSessionID inserts the ";jsessionid=<id>" fragment into a
// dispatch URL: immediately before the "?" when the URL has a query,
// otherwise immediately after the ".do" suffix. Splicing is
// idempotent.
func SpliceSessionID(sessionID, rawURL string) string {
	if sessionID == "" || strings.Contains(rawURL, ";jsessionid=") {
		return rawURL
	}
	fragment := ";jsessionid=" + sessionID
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i] + fragment + rawURL[i:]
	}
	if i := strings.LastIndex(rawURL, ".do"); i >= 0 {
		at := i + len(".do")
		return rawURL[:at] + fragment + rawURL[at:]
	}
	return rawURL + fragment
}

// Splice applies SpliceSessionID with this session's id.
func (s *Session) Splice(rawURL string) string {
	return SpliceSessionID(s.sessionID, rawURL)
}

// URL composes an absolute archive URL from a path (which may carry a
// query), splicing in the session id.
func (s *Session) URL(path string) string {
	return s.baseURL + s.Splice(path)
}

// SessionID returns the current session identifier, "" before login.
func (s *Session) SessionID() string { return s.sessionID }

// User returns the record parsed at login, nil in visitor mode.
func (s *Session) User() *UserRecord { return s.user }

// LoggedIn reports whether a login or visitor handshake has completed.
func (s *Session) LoggedIn() bool { return s.loggedIn }

// Visitor reports whether the session was opened in visitor mode.
func (s *Session) Visitor() bool { return s.visitor }

// UploadPermitted reports whether the logged-in user may upload.
func (s *Session) UploadPermitted() bool {
	return s.user != nil && s.user.UploadPermitted
}

// LoginVisitor performs only the first login phase: obtain a session
// id from the initial redirect. No credentials are sent.
func (s *Session) LoginVisitor(ctx context.Context) error {
	if err := s.obtainSessionID(ctx); err != nil {
		return err
	}
	s.visitor = true
	s.loggedIn = true
	s.user = nil
	s.logger.Info(ctx, "visitor session opened", "session_id", s.sessionID)
	return nil
}

// Login performs the three-phase authentication: obtain a session id,
// post the credentials, then fetch the user record. The credentials
// are kept for the re-login policy.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := s.obtainSessionID(ctx); err != nil {
		return err
	}

	body := fmt.Sprintf("j_username=%s&j_password=%s&form=login",
		username, url.QueryEscape(password))
	resp, err := s.client.PostForm(ctx, s.baseURL+s.Splice(securityCheckPath), body)
	if err != nil {
		return fmt.Errorf("sums: login: %w", err)
	}
	if resp.Status != 302 {
		return fmt.Errorf("sums: login rejected (status %d)", resp.Status)
	}

	resp, err = s.client.Get(ctx, s.baseURL+s.Splice(logonPath+"?caret_xml=yes"))
	if err != nil {
		return fmt.Errorf("sums: fetch user record: %w", err)
	}
	if resp.Status != 200 {
		return fmt.Errorf("sums: fetch user record: status %d", resp.Status)
	}
	user, err := parseUser(resp.Body)
	if err != nil {
		return err
	}

	s.user = user
	s.visitor = false
	s.loggedIn = true
	s.username = username
	s.password = password
	s.logger.Info(ctx, "logged in", "user", user.Login, "upload_permitted", user.UploadPermitted)
	return nil
}

// Refresh re-runs the handshake when the user opted into logging in
// before every operation. Callers run it at the top of search,
// download, and upload.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.loggedIn {
		return common.ErrNotLoggedIn
	}
	if !s.loginBeforeOperation {
		return nil
	}
	if s.visitor {
		return s.LoginVisitor(ctx)
	}
	return s.Login(ctx, s.username, s.password)
}

// Logout tells the archive to drop the session and forgets all local
// session state, including saved credentials.
func (s *Session) Logout(ctx context.Context) {
	if s.sessionID != "" {
		if _, err := s.client.Get(ctx, s.baseURL+s.Splice(logoffPath)); err != nil {
			s.logger.Warn(ctx, "logout request failed", "error", err)
		}
	}
	s.client.ClearHeaders()
	s.sessionID = ""
	s.loggedIn = false
	s.visitor = false
	s.user = nil
	s.username = ""
	s.password = ""
}

// obtainSessionID runs the first phase: a GET that must answer with a
// redirect whose Set-Cookie carries the session id. The id is the
// cookie's value up to the first ";"; the raw cookie is installed as a
// request header for every later call.
func (s *Session) obtainSessionID(ctx context.Context) error {
	resp, err := s.client.Get(ctx, s.baseURL+logonPath)
	if err != nil {
		return fmt.Errorf("sums: contact archive: %w", err)
	}
	if resp.Status != 302 {
		return fmt.Errorf("sums: unexpected logon status %d", resp.Status)
	}
	rawCookie := resp.Header.Get("Set-Cookie")
	if rawCookie == "" {
		return fmt.Errorf("sums: logon response carried no cookie")
	}
	cookie, _, _ := strings.Cut(rawCookie, ";")
	_, id, ok := strings.Cut(cookie, "=")
	if !ok || id == "" {
		return fmt.Errorf("sums: malformed session cookie %q", rawCookie)
	}
	s.sessionID = id
	s.client.SetHeader("Cookie", cookie)
	return nil
}

func parseUser(data []byte) (*UserRecord, error) {
	var doc xmlUser
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sums: parse user record: %w", err)
	}
	user := &UserRecord{
		Login: doc.User.Login,
		Name:  doc.User.Name,
		Usage: doc.User.Usage,
		Quota: doc.User.Quota,
		Roles: doc.User.Roles,
	}
	for _, role := range user.Roles {
		if role == uploadRole {
			user.UploadPermitted = true
		}
	}
	return user, nil
}
