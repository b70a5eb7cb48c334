// Command rojgar is a terminal client for the job board. The session is kept
// in a file under the user config dir.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/listing"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/session"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/garnizeh/rojgar/internal/web"
	"github.com/garnizeh/rojgar/pkg/client"
)

const usage = `usage: rojgar [-api URL] [-session PATH] <command> [flags]

commands:
  signup    create an account
  login     sign in and store the session
  logout    forget the stored session
  jobs      list jobs (-q filters title/description)
  post-job  post a job (POSTER accounts only)
  delete-job  delete one of your postings: rojgar delete-job <id>
  profile   show your profile
  ask       generate interview questions: rojgar ask <stack>
`

var errNotLoggedIn = errors.New("not logged in (or session expired); run: rojgar login")

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, cfg.APIURL); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries what every subcommand needs.
type cli struct {
	out   io.Writer
	store session.Store
	api   func(token string) web.API
	now   func() time.Time
}

func run(ctx context.Context, args []string, out io.Writer, apiURL string) error {
	global := flag.NewFlagSet("rojgar", flag.ContinueOnError)
	global.SetOutput(out)
	apiFlag := global.String("api", apiURL, "API base URL")
	sessionFlag := global.String("session", "", "session file (default: user config dir)")
	timeout := global.Duration("timeout", 90*time.Second, "request timeout")
	global.Usage = func() { fmt.Fprint(out, usage) }
	if err := global.Parse(args); err != nil {
		return err
	}

	path := *sessionFlag
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}

	c := &cli{
		out:   out,
		store: session.NewFileStore(path),
		api:   web.NewClientFunc(*apiFlag, *timeout),
		now:   time.Now,
	}
	return c.dispatch(ctx, global.Args())
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		return c.signup(ctx, rest)
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "jobs":
		return c.jobs(ctx, rest)
	case "post-job":
		return c.postJob(ctx, rest)
	case "delete-job":
		return c.deleteJob(ctx, rest)
	case "profile":
		return c.profile(ctx)
	case "ask":
		return c.ask(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

// authed returns an API client for the stored session, or errNotLoggedIn.
func (c *cli) authed() (web.API, error) {
	if session.Expired(c.store, c.now()) {
		return nil, errNotLoggedIn
	}
	return c.api(session.Token(c.store)), nil
}

func (c *cli) signup(ctx context.Context, args []string) error {
	fs := c.flags("signup")
	f := &validate.SignupForm{}
	var skills string
	fs.StringVar(&f.FirstName, "first", "", "first name")
	fs.StringVar(&f.LastName, "last", "", "last name")
	fs.StringVar(&f.Username, "username", "", "username")
	fs.StringVar(&f.Email, "email", "", "email")
	fs.StringVar(&f.Password, "password", "", "password")
	fs.StringVar(&f.UserType, "type", "SEEKER", "SEEKER or POSTER")
	fs.StringVar(&skills, "skills", "", "comma-separated skills")
	fs.StringVar(&f.Address, "address", "", "address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f.Skills = validate.SplitList(skills)

	if err := validate.Signup(f); err != nil {
		return err
	}

	u, err := c.api("").Signup(ctx, client.SignupRequest{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Email:     f.Email,
		Password:  f.Password,
		UserTypes: f.UserType,
		Skills:    f.Skills,
		Address:   f.Address,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signup successful (%s, %s)\n", u.Username, u.UserType)
	return nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validate.Login(*email, *password); err != nil {
		return err
	}

	lr, err := c.api("").Login(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return errors.New("invalid email or password")
		}
		return err
	}
	if err := session.Save(c.store, lr.Data, lr.Type); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", lr.Type)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if tok := session.Token(c.store); tok != "" {
		_ = c.api(tok).Logout(ctx)
	}
	if err := c.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

func (c *cli) jobs(ctx context.Context, args []string) error {
	fs := c.flags("jobs")
	q := fs.String("q", "", "search term")
	if err := fs.Parse(args); err != nil {
		return err
	}
	api, err := c.authed()
	if err != nil {
		return err
	}

	list, err := api.ListAllJobs(ctx, strings.TrimSpace(*q))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, listing.CountLabel(len(list)))
	for _, j := range list {
		shown, more := listing.CategoryPreview(j.Category)
		cats := strings.Join(shown, ", ")
		if more > 0 {
			cats += fmt.Sprintf(" +%d more", more)
		}
		fmt.Fprintf(c.out, "\n#%d %s [%s]\n  %s\n  opens %s, closes %s\n",
			j.ID, j.Title, cats, j.Description,
			j.CreatedAt.Format("2006-01-02"), j.ClosedAt.Format("2006-01-02"))
	}
	return nil
}

func (c *cli) postJob(ctx context.Context, args []string) error {
	fs := c.flags("post-job")
	title := fs.String("title", "", "job title")
	desc := fs.String("description", "", "job description")
	cats := fs.String("category", "", "comma-separated categories")
	opens := fs.String("opens", "", "opening date (RFC 3339 or 2006-01-02T15:04)")
	closes := fs.String("closes", "", "closing date (RFC 3339 or 2006-01-02T15:04)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form := validate.JobForm{Title: *title, Description: *desc, Category: validate.SplitList(*cats)}
	form.OpensAt, _ = validate.ParseDate(*opens)
	form.ClosesAt, _ = validate.ParseDate(*closes)
	if err := validate.Job(&form); err != nil {
		return err
	}

	api, err := c.authed()
	if err != nil {
		return err
	}
	if session.UserType(c.store) != models.UserTypePoster {
		return errors.New("only POSTER accounts can post jobs")
	}

	j, err := api.CreateJob(ctx, client.CreateJobRequest{
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		CreatedAt:   form.OpensAt,
		ClosedAt:    form.ClosesAt,
		UserID:      session.Subject(c.store),
	})
	if err != nil {
		fmt.Fprintln(c.out, web.JobPostFailedMessage)
		return err
	}
	fmt.Fprintf(c.out, "%s (#%d)\n", web.JobPostedMessage, j.ID)
	return nil
}

func (c *cli) deleteJob(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rojgar delete-job <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid job id %q", args[0])
	}
	api, err := c.authed()
	if err != nil {
		return err
	}
	if err := api.DeleteJob(ctx, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	fmt.Fprintf(c.out, "Job #%d deleted\n", id)
	return nil
}

func (c *cli) profile(ctx context.Context) error {
	api, err := c.authed()
	if err != nil {
		return err
	}
	u, err := api.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to load user profile: %w", err)
	}

	fmt.Fprintf(c.out, "%s %s (%s)\n", u.FirstName, u.LastName, u.UserType)
	fmt.Fprintf(c.out, "username: %s\nemail:    %s\naddress:  %s\n", u.Username, u.Email, u.Address)
	if len(u.Skills) > 0 {
		fmt.Fprintf(c.out, "skills:   %s\n", strings.Join(u.Skills, ", "))
	}
	return nil
}

func (c *cli) ask(ctx context.Context, args []string) error {
	stack, err := validate.Stack(strings.Join(args, " "))
	if err != nil {
		return err
	}
	api, err := c.authed()
	if err != nil {
		return err
	}

	qs, err := api.Questions(ctx, stack)
	if err != nil {
		fmt.Fprintln(c.out, web.FailedQuestionsMessage)
		return err
	}
	fmt.Fprintln(c.out, web.FormatQuestions(qs))
	return nil
}
