package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloogle/internal/auth"
	"bloogle/internal/config"
	"bloogle/internal/models"
	"bloogle/internal/service"
	"bloogle/internal/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	registered  []service.RegisterInput
	registerRes service.RegisterResult
	registerErr error

	verifyOutcome service.VerifyOutcome

	credOutcome service.CredentialOutcome
	credUser    models.User

	resent []string
}

func (s *stubAuth) Register(ctx context.Context, input service.RegisterInput) (service.RegisterResult, error) {
	if input.Avatar != nil {
		_, _ = io.ReadAll(input.Avatar.Data)
	}
	s.registered = append(s.registered, input)
	return s.registerRes, s.registerErr
}

func (s *stubAuth) VerifyToken(ctx context.Context, token string) (service.VerifyOutcome, error) {
	return s.verifyOutcome, nil
}

func (s *stubAuth) VerifyCredentials(ctx context.Context, username string, password string) (service.CredentialOutcome, models.User, error) {
	return s.credOutcome, s.credUser, nil
}

func (s *stubAuth) Resend(ctx context.Context, email string) error {
	s.resent = append(s.resent, email)
	return nil
}

type stubSessions struct {
	mu      sync.Mutex
	handles map[string]auth.Identity
}

func newStubSessions() *stubSessions {
	return &stubSessions{handles: map[string]auth.Identity{}}
}

func (s *stubSessions) Resolve(ctx context.Context, handle string, meta service.ClientMeta) (auth.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.handles[handle]
	return id, ok, nil
}

func (s *stubSessions) Establish(ctx context.Context, user models.User, meta service.ClientMeta) (string, models.Session, error) {
	if !user.IsVerified {
		return "", models.Session{}, service.ErrUnverifiedUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := "handle-" + user.Username
	s.handles[handle] = auth.Identity{UserID: user.ID, Username: user.Username, SessionID: "s-" + user.Username}
	return handle, models.Session{ID: "s-" + user.Username, UserID: user.ID}, nil
}

func (s *stubSessions) Destroy(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, handle)
	return nil
}

func (s *stubSessions) login(id auth.Identity) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle := "handle-" + id.Username
	s.handles[handle] = id
	return handle
}

type stubBlogs struct {
	blogs   map[int64]models.Blog
	saved   map[int64]bool
	setArgs []bool
	created []service.BlogInput
	profile int
}

func newStubBlogs(blogs ...models.Blog) *stubBlogs {
	s := &stubBlogs{blogs: map[int64]models.Blog{}, saved: map[int64]bool{}}
	for _, b := range blogs {
		s.blogs[b.ID] = b
	}
	return s
}

func (s *stubBlogs) list(filter func(models.Blog) bool) []models.Blog {
	out := []models.Blog{}
	for _, b := range s.blogs {
		if filter(b) {
			b.Saved = s.saved[b.ID]
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *stubBlogs) Feed(ctx context.Context, viewerID int64) ([]models.Blog, error) {
	return s.list(func(models.Blog) bool { return true }), nil
}

func (s *stubBlogs) ByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error) {
	return s.list(func(b models.Blog) bool { return b.AuthorID == authorID }), nil
}

func (s *stubBlogs) Saved(ctx context.Context, userID int64) ([]models.Blog, error) {
	return s.list(func(b models.Blog) bool { return s.saved[b.ID] }), nil
}

func (s *stubBlogs) Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error) {
	b, ok := s.blogs[id]
	if !ok {
		return models.Blog{}, service.ErrNotFound
	}
	b.Saved = s.saved[id]
	return b, nil
}

func (s *stubBlogs) ForEdit(ctx context.Context, id int64, userID int64) (models.Blog, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return b, err
	}
	if b.AuthorID != userID {
		return models.Blog{}, service.ErrForbidden
	}
	return b, nil
}

func (s *stubBlogs) Create(ctx context.Context, authorID int64, input service.BlogInput) (models.Blog, error) {
	s.created = append(s.created, input)
	b := models.Blog{ID: int64(len(s.blogs) + 100), AuthorID: authorID, Title: input.Title, Description: input.Description}
	s.blogs[b.ID] = b
	return b, nil
}

func (s *stubBlogs) Update(ctx context.Context, authorID int64, id int64, input service.BlogInput) error {
	if _, err := s.ForEdit(ctx, id, authorID); err != nil {
		return err
	}
	b := s.blogs[id]
	b.Title = input.Title
	s.blogs[id] = b
	return nil
}

func (s *stubBlogs) Delete(ctx context.Context, authorID int64, id int64) error {
	if _, err := s.ForEdit(ctx, id, authorID); err != nil {
		return err
	}
	delete(s.blogs, id)
	return nil
}

func (s *stubBlogs) ToggleSave(ctx context.Context, userID int64, blogID int64) (bool, error) {
	if _, ok := s.blogs[blogID]; !ok {
		return false, service.ErrNotFound
	}
	s.saved[blogID] = !s.saved[blogID]
	return s.saved[blogID], nil
}

func (s *stubBlogs) SetSaved(ctx context.Context, userID int64, blogID int64, saved bool) error {
	s.setArgs = append(s.setArgs, saved)
	s.saved[blogID] = saved
	return nil
}

func (s *stubBlogs) UpdateProfileImage(ctx context.Context, userID int64, upload service.Upload) (int64, error) {
	s.profile++
	return 9, nil
}

type stubImages struct {
	image models.Image
	data  string
}

func (s stubImages) Open(ctx context.Context, id int64) (models.Image, io.ReadCloser, error) {
	if id != s.image.ID {
		return models.Image{}, nil, service.ErrNotFound
	}
	return s.image, io.NopCloser(strings.NewReader(s.data)), nil
}

type fixture struct {
	router   *gin.Engine
	auth     *stubAuth
	sessions *stubSessions
	blogs    *stubBlogs
	checks   map[string]Pinger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: "production",
		Security: config.SecurityConfig{
			SessionTTL:  24 * time.Hour,
			CookieName:  "bloogle_session",
			FlashSecret: "flash-secret",
		},
		Uploads: config.UploadsConfig{MaxBytes: 1 << 20},
	}

	f := &fixture{
		auth:     &stubAuth{},
		sessions: newStubSessions(),
		blogs: newStubBlogs(
			models.Blog{ID: 1, AuthorID: 1, Author: "alice", Title: "Alice's post", Description: "hello"},
			models.Blog{ID: 2, AuthorID: 2, Author: "bob", Title: "Bob's post", Description: "world"},
		),
		checks: map[string]Pinger{},
	}

	tmpl, err := web.Templates()
	require.NoError(t, err)

	f.router = gin.New()
	f.router.SetHTMLTemplate(tmpl)
	NewHandlerSet(zerolog.Nop(), cfg, Dependencies{
		Auth:     f.auth,
		Sessions: f.sessions,
		Blogs:    f.blogs,
		Images:   stubImages{image: models.Image{ID: 5, MimeType: "image/png", SizeBytes: 4}, data: "\x89PNG"},
		Checks:   f.checks,
	}).Routes(f.router)
	return f
}

func (f *fixture) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (f *fixture) as(username string, id int64) *http.Cookie {
	return &http.Cookie{Name: "bloogle_session", Value: f.sessions.login(auth.Identity{UserID: id, Username: username})}
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	f := newFixture(t)
	f.auth.credOutcome = service.CredentialsSuccess
	f.auth.credUser = models.User{ID: 1, Username: "alice", IsVerified: true}

	rec := f.do(postForm("/login", url.Values{"username": {"alice"}, "password": {"wonderland"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookie := cookieNamed(rec, "bloogle_session")
	require.NotNil(t, cookie)
	assert.Equal(t, "handle-alice", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 86400, cookie.MaxAge)
}

func TestLoginFailuresFlashAMessage(t *testing.T) {
	cases := map[service.CredentialOutcome]string{
		service.CredentialsUserNotFound: msgBadLogin,
		service.CredentialsBadSecret:    msgBadLogin,
		service.CredentialsUnverified:   msgVerifyFirst,
	}
	for outcome, want := range cases {
		t.Run(outcome.String(), func(t *testing.T) {
			f := newFixture(t)
			f.auth.credOutcome = outcome

			rec := f.do(postForm("/login", url.Values{"username": {"alice"}, "password": {"x"}}))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get("Location"))
			assert.Nil(t, cookieNamed(rec, "bloogle_session"))

			flash := cookieNamed(rec, "bloogle_session_flash")
			require.NotNil(t, flash)

			page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), flash)
			assert.Equal(t, http.StatusOK, page.Code)
			assert.Contains(t, page.Body.String(), want)
		})
	}
}

func TestLoginMissingFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(postForm("/login", url.Values{"username": {"alice"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), cookieNamed(rec, "bloogle_session_flash"))
	assert.Contains(t, page.Body.String(), "Password is required.")
}

func TestTamperedFlashIsIgnored(t *testing.T) {
	f := newFixture(t)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil),
		&http.Cookie{Name: "bloogle_session_flash", Value: "ZXJyb3J8aGk.forged"})
	assert.Equal(t, http.StatusOK, page.Code)
	assert.NotContains(t, page.Body.String(), "class=\"message")
}

func TestLoginPageQueryMessages(t *testing.T) {
	f := newFixture(t)

	cases := map[string]string{
		"/login?verified=success": msgVerified,
		"/login?verified=already": msgAlreadyVerified,
		"/login?error=expired":    msgLinkExpired,
	}
	for path, want := range cases {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Contains(t, rec.Body.String(), want, path)
	}
}

func TestLoginPageShowsFlashAlongsideQueryMessage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(postForm("/verify/resend", url.Values{"email": {"a@x.com"}}))
	flash := cookieNamed(rec, "bloogle_session_flash")
	require.NotNil(t, flash)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login?verified=success", nil), flash)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), msgVerified)
	assert.Contains(t, page.Body.String(), msgResent)

	cleared := cookieNamed(page, "bloogle_session_flash")
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLoggedInUsersSkipLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/register", nil), f.as("alice", 1))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "pic.png")
		require.NoError(t, err)
		_, err = part.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRegisterSuccess(t *testing.T) {
	f := newFixture(t)
	f.auth.registerRes = service.RegisterResult{EmailSent: true}

	rec := f.do(multipartRequest(t, "/register", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "wonderland",
	}, "dp", "\x89PNG\r\n\x1a\n"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	require.Len(t, f.auth.registered, 1)
	assert.Equal(t, "alice", f.auth.registered[0].Username)
	require.NotNil(t, f.auth.registered[0].Avatar)
	assert.Equal(t, "pic.png", f.auth.registered[0].Avatar.Name)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), cookieNamed(rec, "bloogle_session_flash"))
	assert.Contains(t, page.Body.String(), msgCheckEmail)
}

func TestRegisterWithoutAvatar(t *testing.T) {
	f := newFixture(t)
	f.auth.registerRes = service.RegisterResult{EmailSent: false}

	rec := f.do(postForm("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"wonderland"}}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, f.auth.registered, 1)
	assert.Nil(t, f.auth.registered[0].Avatar)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), cookieNamed(rec, "bloogle_session_flash"))
	assert.Contains(t, page.Body.String(), "could not send the verification email")
}

func TestRegisterConflictAndValidation(t *testing.T) {
	f := newFixture(t)
	f.auth.registerErr = service.ErrUserExists

	rec := f.do(postForm("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"wonderland"}}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username or email already exists.")
	assert.Contains(t, rec.Body.String(), `value="a@x.com"`)
	assert.NotContains(t, rec.Body.String(), "wonderland")

	f.auth.registerErr = service.ValidationError{Message: "Passwords must be at least 8 characters."}
	rec = f.do(postForm("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"short"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords must be at least 8 characters.")

	f.auth.registerErr = errors.New("pq: connection refused")
	rec = f.do(postForm("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"wonderland"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestVerifyRedirects(t *testing.T) {
	cases := map[service.VerifyOutcome]string{
		service.VerifySuccess:           "/login?verified=success",
		service.VerifyAlreadyUsed:       "/login?verified=already",
		service.VerifyNotFoundOrExpired: "/login?error=expired",
	}
	for outcome, want := range cases {
		f := newFixture(t)
		f.auth.verifyOutcome = outcome

		rec := f.do(httptest.NewRequest(http.MethodGet, "/verify/some-token", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, want, rec.Header().Get("Location"))
	}
}

func TestResendAnswersGenerically(t *testing.T) {
	f := newFixture(t)

	rec := f.do(postForm("/verify/resend", url.Values{"email": {"nobody@x.com"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"nobody@x.com"}, f.auth.resent)

	page := f.do(httptest.NewRequest(http.MethodGet, "/login", nil), cookieNamed(rec, "bloogle_session_flash"))
	assert.Contains(t, page.Body.String(), msgResent)
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)
	cookie := f.as("alice", 1)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := cookieNamed(rec, "bloogle_session")
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/myposts", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProtectedRoutesRedirectAnonymous(t *testing.T) {
	f := newFixture(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/create", nil),
		httptest.NewRequest(http.MethodGet, "/saved", nil),
		httptest.NewRequest(http.MethodGet, "/edit/1", nil),
		postForm("/save", url.Values{"id": {"1"}}),
		postForm("/delete", url.Values{"id": {"1"}}),
	} {
		rec := f.do(req)
		assert.Equal(t, http.StatusSeeOther, rec.Code, req.URL.Path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), req.URL.Path)
	}
}

func TestFeedAndBlogView(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bob&#39;s post")
	assert.NotContains(t, rec.Body.String(), "/edit/")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/", nil), f.as("alice", 1))
	assert.Contains(t, rec.Body.String(), `href="/edit/1"`)
	assert.NotContains(t, rec.Body.String(), `href="/edit/2"`)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/blog/2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "world")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/blog/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/blog/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnershipGate(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice", 1)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/edit/2", nil), alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/edit/99", nil), alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(postForm("/update/2", url.Values{"title": {"mine now"}, "description": {"x"}}), alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(postForm("/delete", url.Values{"id": {"2"}}), alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, f.blogs.blogs, int64(2))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/edit/1", nil), alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/update/1"`)

	rec = f.do(postForm("/delete", url.Values{"id": {"1"}}), alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, f.blogs.blogs, int64(1))
}

func TestCreateBlog(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice", 1)

	rec := f.do(multipartRequest(t, "/post", map[string]string{"title": "New", "description": "Body"}, "image", "\x89PNG"), alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, f.blogs.created, 1)
	assert.NotNil(t, f.blogs.created[0].Image)

	rec = f.do(postForm("/post", url.Values{"description": {"Body"}}), alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required.")
}

func TestToggleSaveRedirectsBack(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice", 1)

	req := postForm("/save", url.Values{"id": {"2"}})
	req.Header.Set("Referer", "http://example.com/myposts")
	rec := f.do(req, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/myposts", rec.Header().Get("Location"))
	assert.True(t, f.blogs.saved[2])

	req = postForm("/save", url.Values{"id": {"2"}})
	req.Header.Set("Referer", "https://evil.example/phish")
	rec = f.do(req, alice)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, f.blogs.saved[2])

	rec = f.do(postForm("/save", url.Values{"id": {"2"}, "state": {"on"}}), alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []bool{true}, f.blogs.setArgs)

	rec = f.do(postForm("/save", url.Values{"id": {"2"}, "state": {"maybe"}}), alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(postForm("/save", url.Values{"id": {"404"}}), alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveButtonDoubleSubmitStaysSaved(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice", 1)

	feed := f.do(httptest.NewRequest(http.MethodGet, "/", nil), alice)
	require.Equal(t, http.StatusOK, feed.Code)
	assert.Contains(t, feed.Body.String(), `name="state" value="on"`)
	assert.NotContains(t, feed.Body.String(), `name="state" value="off"`)

	for i := 0; i < 2; i++ {
		rec := f.do(postForm("/save", url.Values{"id": {"2"}, "state": {"on"}}), alice)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	}
	assert.True(t, f.blogs.saved[2])
	assert.Equal(t, []bool{true, true}, f.blogs.setArgs)

	view := f.do(httptest.NewRequest(http.MethodGet, "/blog/2", nil), alice)
	assert.Contains(t, view.Body.String(), `name="state" value="off"`)
	assert.Contains(t, view.Body.String(), "Unsave")
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.as("alice", 1)

	rec := f.do(multipartRequest(t, "/update-profile", nil, "profile", "\x89PNG"), alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, f.blogs.profile)

	rec = f.do(multipartRequest(t, "/update-profile", nil, "", ""), alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/image/5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "\x89PNG", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/image/6", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/image/x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.checks["postgres"] = PingFunc(func(ctx context.Context) error { return nil })

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","dependencies":{"postgres":"ok"},"environment":"production"}`, rec.Body.String())

	f.checks["redis"] = PingFunc(func(ctx context.Context) error { return errors.New("down") })
	rec = f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"error"`)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
