package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"bloogle/internal/auth"
	"bloogle/internal/models"
	"bloogle/internal/service"
)

func (h HandlerSet) Feed(c *gin.Context) {
	blogs, err := h.blogs.Feed(c.Request.Context(), auth.UserID(c.Request.Context()))
	h.renderList(c, "", "home", blogs, err)
}

func (h HandlerSet) MyPosts(c *gin.Context) {
	blogs, err := h.blogs.ByAuthor(c.Request.Context(), h.identity(c).UserID)
	h.renderList(c, "My Posts", "myposts", blogs, err)
}

func (h HandlerSet) SavedPosts(c *gin.Context) {
	blogs, err := h.blogs.Saved(c.Request.Context(), h.identity(c).UserID)
	h.renderList(c, "Saved", "saved", blogs, err)
}

func (h HandlerSet) renderList(c *gin.Context, title string, active string, blogs []models.Blog, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	p := h.newPage(c, title, active)
	p.Blogs = blogs
	c.HTML(http.StatusOK, "index.html", p)
}

func (h HandlerSet) ViewBlog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "Invalid blog id.")
		return
	}

	blog, err := h.blogs.Get(c.Request.Context(), id, auth.UserID(c.Request.Context()))
	if err != nil {
		h.fail(c, err)
		return
	}

	p := h.newPage(c, blog.Title, "blog")
	p.Blog = &blog
	c.HTML(http.StatusOK, "blog.html", p)
}

func (h HandlerSet) CreatePage(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", h.newPage(c, "New Post", "create"))
}

func (h HandlerSet) CreateBlog(c *gin.Context) {
	limitBody(c, h.cfg.Uploads.MaxBytes)

	var form blogForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, nil, bindingMessage(err))
		return
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		h.renderForm(c, nil, "The image could not be read.")
		return
	}
	defer closeImage()

	if _, err := h.blogs.Create(c.Request.Context(), h.identity(c).UserID, service.BlogInput{
		Title:       form.Title,
		Description: form.Description,
		Image:       image,
	}); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h HandlerSet) EditPage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "Invalid blog id.")
		return
	}

	blog, err := h.blogs.ForEdit(c.Request.Context(), id, h.identity(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	p := h.newPage(c, "Edit Post", "create")
	p.Blog = &blog
	c.HTML(http.StatusOK, "form.html", p)
}

func (h HandlerSet) UpdateBlog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "Invalid blog id.")
		return
	}
	limitBody(c, h.cfg.Uploads.MaxBytes)

	var form blogForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderForm(c, &models.Blog{ID: id, Title: form.Title, Description: form.Description}, bindingMessage(err))
		return
	}

	image, closeImage, err := formUpload(c, "image")
	if err != nil {
		h.renderForm(c, &models.Blog{ID: id, Title: form.Title, Description: form.Description}, "The image could not be read.")
		return
	}
	defer closeImage()

	if err := h.blogs.Update(c.Request.Context(), h.identity(c).UserID, id, service.BlogInput{
		Title:       form.Title,
		Description: form.Description,
		Image:       image,
	}); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h HandlerSet) renderForm(c *gin.Context, blog *models.Blog, message string) {
	p := h.newPage(c, "New Post", "create")
	p.Blog = blog
	p.Message = &flashMessage{Kind: "error", Text: message}
	c.HTML(http.StatusBadRequest, "form.html", p)
}

func (h HandlerSet) DeleteBlog(c *gin.Context) {
	var form idForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "Invalid blog id.")
		return
	}

	if err := h.blogs.Delete(c.Request.Context(), h.identity(c).UserID, form.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ToggleSave flips the saved marker, or sets it when the form names a state.
func (h HandlerSet) ToggleSave(c *gin.Context) {
	var form saveForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderError(c, http.StatusBadRequest, "Invalid request", "Invalid blog id.")
		return
	}

	ctx := c.Request.Context()
	userID := h.identity(c).UserID

	var err error
	switch form.State {
	case "on":
		err = h.blogs.SetSaved(ctx, userID, form.ID, true)
	case "off":
		err = h.blogs.SetSaved(ctx, userID, form.ID, false)
	default:
		_, err = h.blogs.ToggleSave(ctx, userID, form.ID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, backTo(c))
}

// backTo returns the local page the form was posted from, or the feed.
func backTo(c *gin.Context) string {
	ref, err := url.Parse(c.GetHeader("Referer"))
	if err != nil || ref.Host != c.Request.Host || ref.Path == "" || ref.Path[0] != '/' {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
