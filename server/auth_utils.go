package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/storefront-admin/api"
)

const (
	msgCredentialsRequired = "Email and password are required"
	msgInvalidEmail        = "Enter a valid email address"
	msgInvalidForm         = "Invalid form data"
)

func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectSuccess uses HX-Redirect for htmx requests and a 303 otherwise
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError sends the user back to a login form with the error and the email they typed
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg, email string) {
	q := url.Values{}
	q.Set("error", errorMsg)
	if email != "" {
		q.Set("email", email)
	}
	redirectSuccess(w, r, path+"?"+q.Encode())
}

// credentialsFromForm reads and validates the login form. The returned message is user-facing.
func (s *Server) credentialsFromForm(r *http.Request) (api.Credentials, string) {
	if err := r.ParseForm(); err != nil {
		return api.Credentials{}, msgInvalidForm
	}

	credentials := api.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	if err := s.validate.Struct(credentials); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fe := range validationErrors {
				if fe.Field() == "Email" && fe.Tag() == "email" {
					return credentials, msgInvalidEmail
				}
			}
		}
		return credentials, msgCredentialsRequired
	}
	return credentials, ""
}
