package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bloogle/internal/service"
)

const (
	msgVerified        = "Email verified! You can now log in."
	msgAlreadyVerified = "This email is already verified. Please log in."
	msgLinkExpired     = "That verification link is invalid or has expired. Request a new one below."
	msgCheckEmail      = "Check your email to verify your account."
	msgMailFailed      = "Your account was created, but we could not send the verification email. Request a new link below."
	msgBadLogin        = "Invalid username or password."
	msgVerifyFirst     = "Please verify your email first. Check your inbox for the link."
	msgResent          = "If that address belongs to an account awaiting verification, a new link is on its way."
)

func (h HandlerSet) LoginPage(c *gin.Context) {
	p := h.newPage(c, "Log in", "login")

	switch {
	case c.Query("verified") == "success":
		p.Status = &flashMessage{Kind: "success", Text: msgVerified}
	case c.Query("verified") == "already":
		p.Status = &flashMessage{Kind: "info", Text: msgAlreadyVerified}
	case c.Query("error") == "expired":
		p.Status = &flashMessage{Kind: "error", Text: msgLinkExpired}
	}
	p.Message = h.flash.take(c.Writer, c.Request)

	c.HTML(http.StatusOK, "login.html", p)
}

func (h HandlerSet) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash.set(c.Writer, "error", bindingMessage(err))
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	outcome, user, err := h.auth.VerifyCredentials(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch outcome {
	case service.CredentialsSuccess:
	case service.CredentialsUnverified:
		h.flash.set(c.Writer, "info", msgVerifyFirst)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	default:
		h.flash.set(c.Writer, "error", msgBadLogin)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	handle, _, err := h.sessions.Establish(c.Request.Context(), user, h.clientMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrUnverifiedUser) {
			h.flash.set(c.Writer, "info", msgVerifyFirst)
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}
		h.fail(c, err)
		return
	}

	h.cookie.Set(c.Writer, handle)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h HandlerSet) RegisterPage(c *gin.Context) {
	p := h.newPage(c, "Sign up", "register")
	p.Message = h.flash.take(c.Writer, c.Request)
	c.HTML(http.StatusOK, "register.html", p)
}

func (h HandlerSet) Register(c *gin.Context) {
	limitBody(c, h.cfg.Uploads.MaxBytes)

	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderRegister(c, http.StatusBadRequest, form, bindingMessage(err))
		return
	}

	avatar, closeAvatar, err := formUpload(c, "dp")
	if err != nil {
		h.renderRegister(c, http.StatusBadRequest, form, "The profile picture could not be read.")
		return
	}
	defer closeAvatar()

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Avatar:   avatar,
	})
	if err != nil {
		var verr service.ValidationError
		switch {
		case errors.As(err, &verr):
			h.renderRegister(c, http.StatusBadRequest, form, verr.Message)
		case errors.Is(err, service.ErrUserExists):
			h.renderRegister(c, http.StatusConflict, form, "Username or email already exists.")
		default:
			h.log.Error().Err(err).Msg("registration failed")
			h.renderRegister(c, http.StatusInternalServerError, form, "Registration failed. Please try again.")
		}
		return
	}

	if result.EmailSent {
		h.flash.set(c.Writer, "info", msgCheckEmail)
	} else {
		h.flash.set(c.Writer, "error", msgMailFailed)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h HandlerSet) renderRegister(c *gin.Context, status int, form registerForm, message string) {
	p := h.newPage(c, "Sign up", "register")
	form.Password = ""
	p.Form = form
	p.Message = &flashMessage{Kind: "error", Text: message}
	c.HTML(status, "register.html", p)
}

func (h HandlerSet) Verify(c *gin.Context) {
	outcome, err := h.auth.VerifyToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}

	switch outcome {
	case service.VerifySuccess:
		c.Redirect(http.StatusSeeOther, "/login?verified=success")
	case service.VerifyAlreadyUsed:
		c.Redirect(http.StatusSeeOther, "/login?verified=already")
	default:
		c.Redirect(http.StatusSeeOther, "/login?error=expired")
	}
}

// Resend always answers the same way so it cannot be used to enumerate accounts.
func (h HandlerSet) Resend(c *gin.Context) {
	var form resendForm
	if err := c.ShouldBind(&form); err != nil {
		h.flash.set(c.Writer, "error", bindingMessage(err))
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err := h.auth.Resend(c.Request.Context(), form.Email); err != nil {
		h.log.Error().Err(err).Msg("verification resend failed")
	}

	h.flash.set(c.Writer, "info", msgResent)
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), h.cookie.Handle(c.Request)); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}
	h.cookie.Clear(c.Writer)
	c.Redirect(http.StatusSeeOther, "/")
}
