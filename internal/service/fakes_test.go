package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bloogle/internal/config"
	bmail "bloogle/internal/mail"
	"bloogle/internal/models"
	"bloogle/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[int64]models.User{}}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrUserExists
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.IsVerified = false
	m.rows[user.ID] = *user
	return nil
}

func (m *memUsers) find(match func(models.User) bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memUsers) GetByID(ctx context.Context, id int64) (models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *memUsers) SetVerificationToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok || u.IsVerified {
		return repository.ErrUserNotFound
	}
	u.VerificationToken = &token
	u.VerificationExpires = &expires
	m.rows[userID] = u
	return nil
}

func (m *memUsers) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.rows {
		if u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != token {
			continue
		}
		if !u.VerificationExpires.After(now) {
			continue
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationExpires = nil
		m.rows[id] = u
		return u, nil
	}
	return models.User{}, repository.ErrTokenNotFound
}

func (m *memUsers) UpdateImage(ctx context.Context, userID int64, imageID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ImageID = &imageID
	m.rows[userID] = u
	return nil
}

func (m *memUsers) DeleteStaleUnverified(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.rows {
		if !u.IsVerified && u.VerificationExpires != nil && u.VerificationExpires.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

type memSessions struct {
	mu    sync.Mutex
	users *memUsers
	rows  map[string]models.Session
}

func newMemSessions(users *memUsers) *memSessions {
	return &memSessions{users: users, rows: map[string]models.Session{}}
}

func (m *memSessions) Create(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s
	return nil
}

func (m *memSessions) GetByTokenHash(ctx context.Context, hash []byte) (models.SessionUser, error) {
	m.mu.Lock()
	var found *models.Session
	for _, s := range m.rows {
		if bytes.Equal(s.TokenHash, hash) {
			s := s
			found = &s
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return models.SessionUser{}, repository.ErrSessionNotFound
	}
	u, err := m.users.GetByID(ctx, found.UserID)
	if err != nil {
		return models.SessionUser{}, repository.ErrSessionNotFound
	}
	return models.SessionUser{Session: *found, Username: u.Username, IsVerified: u.IsVerified, ImageID: u.ImageID}, nil
}

func (m *memSessions) DeleteByTokenHash(ctx context.Context, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.rows {
		if bytes.Equal(s.TokenHash, hash) {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memSessions) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if !s.ExpiresAt.After(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) Touch(ctx context.Context, id string, seenAt time.Time, ip string, ua string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if ok {
		s.LastSeenAt = seenAt
		m.rows[id] = s
	}
	return nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type savedKey struct{ user, blog int64 }

type memBlogs struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Blog
	saved  map[savedKey]bool
}

func newMemBlogs() *memBlogs {
	return &memBlogs{rows: map[int64]models.Blog{}, saved: map[savedKey]bool{}}
}

func (m *memBlogs) sorted(filter func(models.Blog) bool, viewer int64) []models.Blog {
	out := make([]models.Blog, 0)
	for _, b := range m.rows {
		if filter(b) {
			b.Saved = m.saved[savedKey{viewer, b.ID}]
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memBlogs) List(ctx context.Context, viewerID int64) ([]models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(models.Blog) bool { return true }, viewerID), nil
}

func (m *memBlogs) ListByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(b models.Blog) bool { return b.AuthorID == authorID }, authorID), nil
}

func (m *memBlogs) ListSaved(ctx context.Context, userID int64) ([]models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(b models.Blog) bool { return m.saved[savedKey{userID, b.ID}] }, userID), nil
}

func (m *memBlogs) Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return models.Blog{}, repository.ErrBlogNotFound
	}
	b.Saved = m.saved[savedKey{viewerID, id}]
	return b, nil
}

func (m *memBlogs) Create(ctx context.Context, blog *models.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	blog.ID = m.nextID
	m.rows[blog.ID] = *blog
	return nil
}

func (m *memBlogs) Update(ctx context.Context, blog models.Blog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[blog.ID]
	if !ok {
		return repository.ErrBlogNotFound
	}
	if cur.AuthorID != blog.AuthorID {
		return repository.ErrNotBlogOwner
	}
	if blog.ImageID == nil {
		blog.ImageID = cur.ImageID
	}
	m.rows[blog.ID] = blog
	return nil
}

func (m *memBlogs) Delete(ctx context.Context, id int64, authorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return repository.ErrBlogNotFound
	}
	if cur.AuthorID != authorID {
		return repository.ErrNotBlogOwner
	}
	delete(m.rows, id)
	for k := range m.saved {
		if k.blog == id {
			delete(m.saved, k)
		}
	}
	return nil
}

func (m *memBlogs) AuthorOf(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return 0, repository.ErrBlogNotFound
	}
	return b.AuthorID, nil
}

func (m *memBlogs) Toggle(ctx context.Context, userID int64, blogID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[blogID]; !ok {
		return false, repository.ErrBlogNotFound
	}
	k := savedKey{userID, blogID}
	if m.saved[k] {
		delete(m.saved, k)
		return false, nil
	}
	m.saved[k] = true
	return true, nil
}

func (m *memBlogs) Set(ctx context.Context, userID int64, blogID int64, saved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[blogID]; !ok {
		return repository.ErrBlogNotFound
	}
	k := savedKey{userID, blogID}
	if saved {
		m.saved[k] = true
	} else {
		delete(m.saved, k)
	}
	return nil
}

func (m *memBlogs) savedCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.saved {
		if k.user == userID {
			n++
		}
	}
	return n
}

type memImages struct {
	mu     sync.Mutex
	nextID int64
	meta   map[int64]models.Image
	blobs  map[string][]byte
}

func newMemImages() *memImages {
	return &memImages{meta: map[int64]models.Image{}, blobs: map[string][]byte{}}
}

func (m *memImages) Upsert(ctx context.Context, image models.Image) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, img := range m.meta {
		if bytes.Equal(img.Checksum, image.Checksum) {
			return id, nil
		}
	}
	m.nextID++
	image.ID = m.nextID
	m.meta[image.ID] = image
	return image.ID, nil
}

func (m *memImages) GetByID(ctx context.Context, id int64) (models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.meta[id]
	if !ok {
		return models.Image{}, repository.ErrImageNotFound
	}
	return img, nil
}

func (m *memImages) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memImages) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memMarks struct {
	mu       sync.Mutex
	consumed map[string]bool
	slots    map[int64]bool
}

func newMemMarks() *memMarks {
	return &memMarks{consumed: map[string]bool{}, slots: map[int64]bool{}}
}

func (m *memMarks) MarkConsumed(ctx context.Context, hash []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumed[string(hash)] = true
	return nil
}

func (m *memMarks) WasConsumed(ctx context.Context, hash []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumed[string(hash)], nil
}

func (m *memMarks) AcquireResendSlot(ctx context.Context, userID int64, cooldown time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slots[userID] {
		return false, nil
	}
	m.slots[userID] = true
	return true, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []bmail.Message
	err  error
}

func (r *recordingMailer) Dispatch(ctx context.Context, msg bmail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingMailer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionTTL: 24 * time.Hour,
			BcryptCost: 4,
		},
		Auth: config.AuthConfig{
			VerificationTTL: 24 * time.Hour,
			ResendOnLogin:   true,
			ResendCooldown:  5 * time.Minute,
		},
		Mail: config.MailConfig{
			BaseURL: "https://bloogle.test",
		},
		Uploads: config.UploadsConfig{MaxBytes: 1 << 20},
	}
}

type harness struct {
	cfg      *config.AppConfig
	clock    *fakeClock
	users    *memUsers
	sessions *memSessions
	blogs    *memBlogs
	images   *memImages
	marks    *memMarks
	mailer   *recordingMailer
	auth     *AuthService
	manager  *SessionManager
	blog     *BlogService
	image    *ImageService
}

func newHarness(cfg *config.AppConfig) *harness {
	h := &harness{
		cfg:    cfg,
		clock:  newFakeClock(),
		users:  newMemUsers(),
		blogs:  newMemBlogs(),
		images: newMemImages(),
		marks:  newMemMarks(),
		mailer: &recordingMailer{},
	}
	h.sessions = newMemSessions(h.users)
	log := zerolog.Nop()

	h.image = NewImageService(h.images, h.images, cfg.Uploads.MaxBytes, log)
	issuer := NewTokenIssuer(cfg.Auth.VerificationTTL, h.clock.Now)
	h.auth = NewAuthService(h.users, issuer, h.marks, h.mailer, h.image, cfg, log)
	h.auth.now = h.clock.Now
	h.manager = NewSessionManager(h.sessions, cfg.Security.SessionTTL, log)
	h.manager.now = h.clock.Now
	h.blog = NewBlogService(h.blogs, h.blogs, h.users, h.image, log)
	return h
}
