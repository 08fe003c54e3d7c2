package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bloogle/internal/auth"
	"bloogle/internal/config"
	"bloogle/internal/middleware"
	"bloogle/internal/models"
	"bloogle/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (service.RegisterResult, error)
	VerifyToken(ctx context.Context, token string) (service.VerifyOutcome, error)
	VerifyCredentials(ctx context.Context, username string, password string) (service.CredentialOutcome, models.User, error)
	Resend(ctx context.Context, email string) error
}

type SessionService interface {
	middleware.SessionResolver
	Establish(ctx context.Context, user models.User, meta service.ClientMeta) (string, models.Session, error)
	Destroy(ctx context.Context, handle string) error
}

type BlogService interface {
	Feed(ctx context.Context, viewerID int64) ([]models.Blog, error)
	ByAuthor(ctx context.Context, authorID int64) ([]models.Blog, error)
	Saved(ctx context.Context, userID int64) ([]models.Blog, error)
	Get(ctx context.Context, id int64, viewerID int64) (models.Blog, error)
	ForEdit(ctx context.Context, id int64, userID int64) (models.Blog, error)
	Create(ctx context.Context, authorID int64, input service.BlogInput) (models.Blog, error)
	Update(ctx context.Context, authorID int64, id int64, input service.BlogInput) error
	Delete(ctx context.Context, authorID int64, id int64) error
	ToggleSave(ctx context.Context, userID int64, blogID int64) (bool, error)
	SetSaved(ctx context.Context, userID int64, blogID int64, saved bool) error
	UpdateProfileImage(ctx context.Context, userID int64, upload service.Upload) (int64, error)
}

type ImageService interface {
	Open(ctx context.Context, id int64) (models.Image, io.ReadCloser, error)
}

// Pinger is a dependency reported by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Dependencies struct {
	Auth     AuthService
	Sessions SessionService
	Blogs    BlogService
	Images   ImageService
	Checks   map[string]Pinger
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     AuthService
	sessions SessionService
	blogs    BlogService
	images   ImageService
	checks   map[string]Pinger
	cookie   auth.SessionCookie
	flash    flashCodec
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		blogs:    deps.Blogs,
		images:   deps.Images,
		checks:   deps.Checks,
		cookie: auth.SessionCookie{
			Name:   cfg.Security.CookieName,
			Secure: cfg.SecureCookies(),
			MaxAge: cfg.Security.SessionTTL,
		},
		flash: flashCodec{
			name:   cfg.Security.CookieName + "_flash",
			secret: cfg.Security.FlashSecret,
			secure: cfg.SecureCookies(),
		},
	}
}

func (h HandlerSet) Routes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/image/:id", h.Image)

	site := router.Group("/", middleware.Session(h.sessions, h.cookie, h.log))
	{
		site.GET("/", h.Feed)
		site.GET("/blog/:id", h.ViewBlog)
		site.GET("/verify/:token", h.Verify)
		site.POST("/verify/resend", h.Resend)
		site.GET("/logout", h.Logout)

		guest := site.Group("/", middleware.RedirectAuthenticated("/"))
		guest.GET("/login", h.LoginPage)
		guest.POST("/login", h.Login)
		guest.GET("/register", h.RegisterPage)
		guest.POST("/register", h.Register)

		member := site.Group("/", middleware.RequireAuth())
		member.GET("/create", h.CreatePage)
		member.POST("/post", h.CreateBlog)
		member.GET("/edit/:id", h.EditPage)
		member.POST("/update/:id", h.UpdateBlog)
		member.POST("/delete", h.DeleteBlog)
		member.GET("/myposts", h.MyPosts)
		member.GET("/saved", h.SavedPosts)
		member.POST("/save", h.ToggleSave)
		member.POST("/update-profile", h.UpdateProfile)
	}

	router.NoRoute(middleware.Session(h.sessions, h.cookie, h.log), func(c *gin.Context) {
		h.renderError(c, http.StatusNotFound, "Page not found", "We couldn't find what you were looking for.")
	})
}

// page is the data every template renders against.
type page struct {
	Title   string
	Active  string
	User    *auth.Identity
	Status  *flashMessage // outcome named by the query string, login page only
	Message *flashMessage
	Blogs   []models.Blog
	Blog    *models.Blog
	Form    registerForm
	Heading string
	Detail  string
}

func (h HandlerSet) newPage(c *gin.Context, title string, active string) page {
	p := page{Title: title, Active: active}
	if id, ok := auth.FromContext(c.Request.Context()); ok {
		p.User = &id
	}
	return p
}

func (h HandlerSet) renderError(c *gin.Context, status int, heading string, detail string) {
	p := h.newPage(c, heading, "")
	p.Heading = heading
	p.Detail = detail
	c.HTML(status, "error.html", p)
}

// fail maps service errors onto pages. Internal details stay in the log.
func (h HandlerSet) fail(c *gin.Context, err error) {
	var verr service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderError(c, http.StatusBadRequest, "Invalid request", verr.Message)
	case errors.Is(err, service.ErrNotFound):
		h.renderError(c, http.StatusNotFound, "Not found", "That post or image does not exist.")
	case errors.Is(err, service.ErrForbidden):
		h.renderError(c, http.StatusForbidden, "Not allowed", "You can only change your own posts.")
	case errors.Is(err, service.ErrUserExists):
		h.renderError(c, http.StatusConflict, "Already registered", "Username or email already exists.")
	default:
		h.log.Error().Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("X-Request-Id")).
			Msg("request failed")
		h.renderError(c, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
	}
}

func (h HandlerSet) identity(c *gin.Context) auth.Identity {
	id, _ := auth.FromContext(c.Request.Context())
	return id
}

func (h HandlerSet) clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{IPAddress: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
