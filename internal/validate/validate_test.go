package validate_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/rojgar/internal/validate"
)

func validSignup() validate.SignupForm {
	return validate.SignupForm{
		FirstName: "Asha",
		LastName:  "Karki",
		Username:  "asha",
		Email:     "asha@example.com",
		Password:  "secret1",
		Skills:    []string{"go"},
	}
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *validate.SignupForm)
		wantField string
		wantMsg   string
	}{
		{name: "valid"},
		{name: "short first name", mutate: func(f *validate.SignupForm) { f.FirstName = "Al" }, wantField: "firstName", wantMsg: "First name must be at least 3 characters"},
		{name: "padded first name", mutate: func(f *validate.SignupForm) { f.FirstName = "  Al  " }, wantField: "firstName"},
		{name: "short last name", mutate: func(f *validate.SignupForm) { f.LastName = "" }, wantField: "lastName", wantMsg: "Last name must be at least 3 characters"},
		{name: "short username", mutate: func(f *validate.SignupForm) { f.Username = "ab" }, wantField: "username", wantMsg: "Username must be at least 3 characters"},
		{name: "bad email", mutate: func(f *validate.SignupForm) { f.Email = "asha@example" }, wantField: "email", wantMsg: "Please enter a valid email"},
		{name: "email with space", mutate: func(f *validate.SignupForm) { f.Email = "a sha@example.com" }, wantField: "email"},
		{name: "short password", mutate: func(f *validate.SignupForm) { f.Password = "12345" }, wantField: "password", wantMsg: "Password must be at least 6 characters"},
		{name: "bad user type", mutate: func(f *validate.SignupForm) { f.UserType = "ADMIN" }, wantField: "userTypes"},
		{name: "lower-case poster", mutate: func(f *validate.SignupForm) { f.UserType = "poster" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validSignup()
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			err := validate.Signup(&f)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verrs validate.Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected validate.Errors, got %v", err)
			}
			if !verrs.Has(tt.wantField) {
				t.Fatalf("expected %s to fail, got %v", tt.wantField, verrs)
			}
			if tt.wantMsg != "" && verrs.First() != tt.wantMsg {
				t.Fatalf("first message = %q want %q", verrs.First(), tt.wantMsg)
			}
		})
	}
}

func TestSignup_Normalises(t *testing.T) {
	f := validSignup()
	f.FirstName = "  Asha "
	f.Skills = []string{" go", "", "  ", "sql "}
	if err := validate.Signup(&f); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if f.FirstName != "Asha" || f.UserType != "SEEKER" {
		t.Fatalf("unexpected normalised form: %#v", f)
	}
	if len(f.Skills) != 2 || f.Skills[0] != "go" || f.Skills[1] != "sql" {
		t.Fatalf("unexpected skills: %#v", f.Skills)
	}
}

func TestSignup_OrderFollowsForm(t *testing.T) {
	f := validate.SignupForm{}
	err := validate.Signup(&f)
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validate.Errors, got %v", err)
	}
	want := []string{"firstName", "lastName", "username", "email", "password"}
	if len(verrs) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), verrs)
	}
	for i, f := range want {
		if verrs[i].Field != f {
			t.Fatalf("error %d field = %s want %s", i, verrs[i].Field, f)
		}
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Fatalf("expected joined message, got %q", err.Error())
	}
}

func TestLogin(t *testing.T) {
	if err := validate.Login("a@b.co", "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validate.Login(" ", ""); err == nil {
		t.Fatalf("expected error for blank credentials")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"go, react ,  , sql", []string{"go", "react", "sql"}},
		{"", []string{}},
		{" , ,", []string{}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		got := validate.SplitList(tt.in)
		if got == nil || len(got) != len(tt.want) {
			t.Fatalf("SplitList(%q) = %#v want %#v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("SplitList(%q) = %#v want %#v", tt.in, got, tt.want)
			}
		}
	}
}

func TestJob(t *testing.T) {
	opens := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	valid := func() validate.JobForm {
		return validate.JobForm{Title: "Go dev", Description: "Build APIs", Category: []string{"go"}, OpensAt: opens, ClosesAt: opens.Add(24 * time.Hour)}
	}

	tests := []struct {
		name      string
		mutate    func(f *validate.JobForm)
		wantField string
	}{
		{name: "valid"},
		{name: "no title", mutate: func(f *validate.JobForm) { f.Title = "  " }, wantField: "title"},
		{name: "no description", mutate: func(f *validate.JobForm) { f.Description = "" }, wantField: "description"},
		{name: "blank categories", mutate: func(f *validate.JobForm) { f.Category = []string{" ", ""} }, wantField: "category"},
		{name: "no opening", mutate: func(f *validate.JobForm) { f.OpensAt = time.Time{} }, wantField: "createdAt"},
		{name: "no closing", mutate: func(f *validate.JobForm) { f.ClosesAt = time.Time{} }, wantField: "closedAt"},
		{name: "closing equals opening", mutate: func(f *validate.JobForm) { f.ClosesAt = f.OpensAt }, wantField: "closedAt"},
		{name: "closing before opening", mutate: func(f *validate.JobForm) { f.ClosesAt = f.OpensAt.Add(-time.Hour) }, wantField: "closedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid()
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			err := validate.Job(&f)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var verrs validate.Errors
			if !errors.As(err, &verrs) || !verrs.Has(tt.wantField) {
				t.Fatalf("expected %s to fail, got %v", tt.wantField, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := validate.ParseDate("2025-03-01T09:30")
	if err != nil {
		t.Fatalf("datetime-local: %v", err)
	}
	if !got.Equal(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}

	got, err = validate.ParseDate("2025-03-01T09:30:00+05:45")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if got.UTC().Hour() != 3 || got.UTC().Minute() != 45 {
		t.Fatalf("unexpected utc time %v", got.UTC())
	}

	if _, err := validate.ParseDate("yesterday"); err == nil {
		t.Fatalf("expected error for free text")
	}
}

func TestStack(t *testing.T) {
	got, err := validate.Stack("  React Native ")
	if err != nil || got != "react native" {
		t.Fatalf("Stack = %q, %v", got, err)
	}
	if _, err := validate.Stack("   "); err == nil {
		t.Fatalf("expected error for blank stack")
	}
	if _, err := validate.Stack(strings.Repeat("a", 101)); err == nil {
		t.Fatalf("expected error for long stack")
	}
	if _, err := validate.Stack(strings.Repeat("a", 100)); err != nil {
		t.Fatalf("100 characters should pass: %v", err)
	}
}
