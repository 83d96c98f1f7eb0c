package sums

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretsuite/sumsync/internal/common"
	"github.com/caretsuite/sumsync/internal/httpx"
)

const testUserXML = `<?xml version="1.0"?>
<sums>
  <user>
    <login>carl</login>
    <username>Carl</username>
    <usage>120</usage>
    <quota>5000</quota>
    <role>download</role>
    <role>upload</role>
  </user>
</sums>`

// archiveStub fakes the stateful server side of the login dialogue.
type archiveStub struct {
	t *testing.T

	userXML    string
	rejectAuth bool

	logonCount int
	authBody   string
	authCookie string
	xmlCookie  string
}

func (a *archiveStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		// Spliced URLs keep the ";jsessionid=…" fragment in the path.
		case strings.HasPrefix(r.URL.Path, "/sums/logon.do") && r.URL.Query().Get("caret_xml") == "yes":
			a.xmlCookie = r.Header.Get("Cookie")
			_, _ = io.WriteString(w, a.userXML)
		case strings.HasPrefix(r.URL.Path, "/sums/logon.do"):
			a.logonCount++
			w.Header().Set("Set-Cookie", "JSESSIONID=ABC123; Path=/sums; HttpOnly")
			w.Header().Set("Location", "/sums/index.jsp")
			w.WriteHeader(http.StatusFound)
		case strings.HasPrefix(r.URL.Path, "/sums/dispatch.do"):
			// logoff
		case strings.HasPrefix(r.URL.Path, "/sums/login/j_security_check"):
			a.authCookie = r.Header.Get("Cookie")
			b, _ := io.ReadAll(r.Body)
			a.authBody = string(b)
			if a.rejectAuth {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.Header().Set("Location", "/sums/logon.do")
			w.WriteHeader(http.StatusFound)
		default:
			a.t.Errorf("unexpected request: %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestSession(t *testing.T, stub *archiveStub) (*Session, *httptest.Server) {
	t.Helper()
	stub.t = t
	if stub.userXML == "" {
		stub.userXML = testUserXML
	}
	ts := httptest.NewServer(stub.handler())
	t.Cleanup(ts.Close)
	return NewSession(httpx.New(5), ts.URL, false, nil), ts
}

func TestSpliceSessionID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"query present", "/sums/specfile.do?archive_id=701006",
			"/sums/specfile.do;jsessionid=ABC?archive_id=701006"},
		{"no query", "/sums/logon.do",
			"/sums/logon.do;jsessionid=ABC"},
		{"already spliced", "/sums/logon.do;jsessionid=ABC",
			"/sums/logon.do;jsessionid=ABC"},
		{"dispatch with query and path", "/sums/dispatch.do?forward=logoff",
			"/sums/dispatch.do;jsessionid=ABC?forward=logoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpliceSessionID("ABC", tt.url))
			// Re-splicing is a no-op.
			assert.Equal(t, tt.want, SpliceSessionID("ABC", SpliceSessionID("ABC", tt.url)))
		})
	}
	assert.Equal(t, "/sums/logon.do", SpliceSessionID("", "/sums/logon.do"))
}

func TestSession_Login(t *testing.T) {
	stub := &archiveStub{}
	s, _ := newTestSession(t, stub)

	require.NoError(t, s.Login(context.Background(), "carl", "p&ss word"))

	assert.Equal(t, "ABC123", s.SessionID())
	assert.True(t, s.LoggedIn())
	assert.False(t, s.Visitor())
	assert.Equal(t, "j_username=carl&j_password=p%26ss+word&form=login", stub.authBody)
	// The session cookie travels on every post-logon request.
	assert.Equal(t, "JSESSIONID=ABC123", stub.authCookie)
	assert.Equal(t, "JSESSIONID=ABC123", stub.xmlCookie)

	user := s.User()
	require.NotNil(t, user)
	assert.Equal(t, "carl", user.Login)
	assert.Equal(t, int64(5000), user.Quota)
	assert.Equal(t, []string{"download", "upload"}, user.Roles)
	assert.True(t, s.UploadPermitted())
}

func TestSession_LoginRejected(t *testing.T) {
	stub := &archiveStub{rejectAuth: true}
	s, _ := newTestSession(t, stub)

	err := s.Login(context.Background(), "carl", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected")
	assert.False(t, s.LoggedIn())
}

func TestSession_LoginVisitor(t *testing.T) {
	stub := &archiveStub{}
	s, _ := newTestSession(t, stub)

	require.NoError(t, s.LoginVisitor(context.Background()))

	assert.True(t, s.LoggedIn())
	assert.True(t, s.Visitor())
	assert.Nil(t, s.User())
	assert.False(t, s.UploadPermitted())
	assert.Equal(t, 1, stub.logonCount)
	assert.Empty(t, stub.authBody, "visitor mode must not post credentials")
}

func TestSession_RefreshReLogsInWhenConfigured(t *testing.T) {
	stub := &archiveStub{t: t, userXML: testUserXML}
	ts := httptest.NewServer(stub.handler())
	defer ts.Close()

	s := NewSession(httpx.New(5), ts.URL, true, nil)
	require.NoError(t, s.Login(context.Background(), "carl", "pw"))
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 2, stub.logonCount)

	// Without the option, Refresh is a no-op.
	quiet := NewSession(httpx.New(5), ts.URL, false, nil)
	require.NoError(t, quiet.Login(context.Background(), "carl", "pw"))
	count := stub.logonCount
	require.NoError(t, quiet.Refresh(context.Background()))
	assert.Equal(t, count, stub.logonCount)
}

func TestSession_RefreshRequiresLogin(t *testing.T) {
	s := NewSession(httpx.New(5), "http://localhost:1", false, nil)
	err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
}

func TestSession_Logout(t *testing.T) {
	stub := &archiveStub{}
	s, _ := newTestSession(t, stub)

	require.NoError(t, s.LoginVisitor(context.Background()))
	s.Logout(context.Background())

	assert.False(t, s.LoggedIn())
	assert.Empty(t, s.SessionID())
	assert.Nil(t, s.User())
}
