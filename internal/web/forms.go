package web

import (
	"errors"
	"net/http"

	"github.com/garnizeh/rojgar/internal/validate"
)

func signupFormFromRequest(r *http.Request) *validate.SignupForm {
	return &validate.SignupForm{
		FirstName: r.FormValue("firstName"),
		LastName:  r.FormValue("lastName"),
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		UserType:  r.FormValue("userType"),
		Skills:    validate.SplitList(r.FormValue("skills")),
		Address:   r.FormValue("address"),
	}
}

// checkSignup runs the signup rules and returns the first message to show.
func checkSignup(f *validate.SignupForm) string {
	return firstMessage(validate.Signup(f))
}

func normaliseStack(s string) (string, error) {
	return validate.Stack(s)
}

func firstMessage(err error) string {
	if err == nil {
		return ""
	}
	var errs validate.Errors
	if errors.As(err, &errs) {
		return errs.First()
	}
	return err.Error()
}
