package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	Username string `form:"username" binding:"required,max=64"`
	Password string `form:"password" binding:"required,max=256"`
}

type registerForm struct {
	Username string `form:"username" binding:"required,max=64"`
	Email    string `form:"email" binding:"required,max=254"`
	Password string `form:"password" binding:"required,max=256"`
}

type resendForm struct {
	Email string `form:"email" binding:"required,email,max=254"`
}

type blogForm struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description" binding:"required"`
}

type idForm struct {
	ID int64 `form:"id" binding:"required,gt=0"`
}

type saveForm struct {
	ID    int64  `form:"id" binding:"required,gt=0"`
	State string `form:"state" binding:"omitempty,oneof=on off"`
}

var fieldLabels = map[string]string{
	"Username":    "Username",
	"Email":       "Email",
	"Password":    "Password",
	"Title":       "Title",
	"Description": "Story",
	"ID":          "Post",
	"State":       "State",
}

// bindingMessage turns a binding failure into text that can be shown to the user.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "The form could not be read. Please try again."
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, label+" is required.")
		case "email":
			msgs = append(msgs, "Please enter a valid email address.")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters.", label, fe.Param()))
		default:
			msgs = append(msgs, label+" is invalid.")
		}
	}
	return strings.Join(msgs, " ")
}
