package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/bringyour/classfeed/feed"
)


const LocalVersion = "0.0.0-local"


func init() {
	flag.Set("logtostderr", "true")
	flag.Set("v", "0")
}


func main() {
	usage := fmt.Sprintf(
		`Classroom feed control.

The default api url is:
    api_url: %s

Settings are read from the config file, then the environment
(CLASSFEED_API_BASE_URL, CLASSFEED_API_KEY, or a .env file), then options.

Usage:
    feedctl signin [options] --email=<email> [--password=<password>]
    feedctl signout [options]
    feedctl whoami [options]
    feedctl feed [options] [--more=<more>]
    feedctl show [options] <status_id>
    feedctl post [options] <content>
    feedctl delete [options] <status_id>
    feedctl like [options] <status_id>
    feedctl unlike [options] <status_id>
    feedctl comment [options] <status_id> <content>
    feedctl uncomment [options] <status_id> <comment_id>
    feedctl members [options] [--year=<year>]

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --config=<config>         Config file path.
    --api_url=<api_url>
    --api_key=<api_key>
    --email=<email>
    --password=<password>
    --more=<more>             Reveal this many more pages [default: 0].
    --year=<year>             Cohort year. Defaults to your own.
    --debug                   Log debug output.`,
		feed.DefaultApiUrl,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RequireVersion())
	if err != nil {
		panic(err)
	}

	if debug, _ := opts.Bool("--debug"); debug {
		flag.Set("v", "2")
	}

	// a missing .env is normal
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	commands := []struct {
		name string
		run  func(context.Context, docopt.Opts) error
	}{
		{"signin", signIn},
		{"signout", signOut},
		{"whoami", whoAmI},
		{"feed", listFeed},
		{"show", show},
		{"post", post},
		{"delete", deleteStatus},
		{"like", like},
		{"unlike", unlike},
		{"comment", comment},
		{"uncomment", uncomment},
		{"members", members},
	}
	for _, command := range commands {
		if selected, _ := opts.Bool(command.name); selected {
			if err := command.run(ctx, opts); err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", err)
				os.Exit(1)
			}
			return
		}
	}
}


func RequireVersion() string {
	if version := os.Getenv("CLASSFEED_VERSION"); version != "" {
		return version
	}
	return LocalVersion
}


func loadConfig(opts docopt.Opts) (*Config, error) {
	path, err := opts.String("--config")
	if err != nil || path == "" {
		path = DefaultConfigPath()
	}
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	config.applyOpts(opts)
	return config, nil
}

var errNotSignedIn = errors.New("Not signed in. Run `feedctl signin` first.")


// the feed engine, signed in with the saved credential when there is one
func newFeed(ctx context.Context, opts docopt.Opts) (*feed.Feed, *Config, bool, error) {
	config, err := loadConfig(opts)
	if err != nil {
		return nil, nil, false, err
	}
	credentials, err := LoadCredentials(config.CredentialsPath)
	if err != nil {
		return nil, nil, false, err
	}

	api := feed.NewClassroomApi(config.ApiSettings())
	f := feed.NewFeed(ctx, api, config.FeedSettings())
	if credentials != nil {
		f.SetCredential(credentials.Jwt)
	}
	return f, config, credentials != nil, nil
}

// a feed with the status list loaded. Mutations need the status to be resident.
func newLoadedFeed(ctx context.Context, opts docopt.Opts) (*feed.Feed, error) {
	f, _, signedIn, err := newFeed(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !signedIn {
		f.Close()
		return nil, errNotSignedIn
	}
	if _, err := f.BootstrapSync(ctx); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}


func signIn(ctx context.Context, opts docopt.Opts) error {
	email, _ := opts.String("--email")

	password, err := opts.String("--password")
	if err != nil || password == "" {
		fmt.Print("Enter password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return err
		}
		password = string(passwordBytes)
		fmt.Printf("\n")
	}

	f, config, _, err := newFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := f.SignInSync(ctx, email, password)
	if err != nil {
		return err
	}
	err = SaveCredentials(config.CredentialsPath, &Credentials{
		Jwt:   result.Token,
		Email: email,
	})
	if err != nil {
		return err
	}

	profile, _ := f.ResolveProfileSync(ctx)
	printIdentity(f.Identity(), profile)
	return nil
}

func signOut(ctx context.Context, opts docopt.Opts) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	return RemoveCredentials(config.CredentialsPath)
}

func whoAmI(ctx context.Context, opts docopt.Opts) error {
	f, _, signedIn, err := newFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if !signedIn {
		fmt.Printf("Not signed in.\n")
		return nil
	}
	profile, _ := f.ResolveProfileSync(ctx)
	printIdentity(f.Identity(), profile)
	return nil
}

func printIdentity(identity feed.Identity, profile *feed.Profile) {
	if identity.UserId != "" {
		fmt.Printf("user_id: %s\n", identity.UserId)
	}
	if identity.Email != "" {
		fmt.Printf("email: %s\n", identity.Email)
	}
	if profile != nil {
		if name := profile.DisplayName(); name != "" {
			fmt.Printf("name: %s\n", name)
		}
		if profile.EnrollmentYear != "" {
			fmt.Printf("enrollment_year: %s\n", profile.EnrollmentYear)
		}
	}
}


func listFeed(ctx context.Context, opts docopt.Opts) error {
	more, _ := opts.Int("--more")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := 0; i < more; i++ {
		f.LoadMore()
	}

	identity := f.Identity()
	for _, status := range f.Visible() {
		printStatus(status, identity)
	}
	window := f.Window()
	if window.HasMore() {
		fmt.Printf("(%d of %d shown)\n", window.Visible, window.Total)
	}
	return nil
}

func show(ctx context.Context, opts docopt.Opts) error {
	statusId, _ := opts.String("<status_id>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	status, err := f.LoadDetailsSync(ctx, statusId)
	if err != nil {
		return err
	}
	identity := f.Identity()
	printStatus(status, identity)
	for _, c := range status.Comments {
		printComment(c, identity)
	}
	return nil
}

func printStatus(status *feed.StatusEntry, identity feed.Identity) {
	liked := " "
	if status.IsLiked {
		liked = "*"
	}
	own := ""
	if feed.CanDeleteStatus(status, identity) {
		own = " (yours)"
	}
	fmt.Printf(
		"%s %s  %s, %s%s\n    %s\n    %d likes, %d comments\n",
		liked,
		status.Id,
		status.AuthorName,
		humanizeTime(status),
		own,
		strings.ReplaceAll(status.Content, "\n", "\n    "),
		status.LikeCount,
		len(status.Comments),
	)
}

func printComment(comment *feed.CommentEntry, identity feed.Identity) {
	own := ""
	if feed.CanDeleteComment(comment, identity) {
		own = " (yours)"
	}
	fmt.Printf("    - %s %s%s: %s\n", comment.Id, comment.AuthorName, own, comment.Content)
}

func humanizeTime(status *feed.StatusEntry) string {
	if status.CreatedAt.IsZero() {
		return "unknown time"
	}
	return humanize.Time(status.CreatedAt)
}


func post(ctx context.Context, opts docopt.Opts) error {
	content, _ := opts.String("<content>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	status, err := f.CreateStatusSync(ctx, content)
	if err != nil {
		return err
	}
	if status != nil {
		printStatus(status, f.Identity())
	}
	return nil
}

func deleteStatus(ctx context.Context, opts docopt.Opts) error {
	statusId, _ := opts.String("<status_id>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.DeleteStatusSync(ctx, statusId)
}

func like(ctx context.Context, opts docopt.Opts) error {
	return setLiked(ctx, opts, true)
}

func unlike(ctx context.Context, opts docopt.Opts) error {
	return setLiked(ctx, opts, false)
}

// the engine toggles, so the current state decides whether a call is needed
func setLiked(ctx context.Context, opts docopt.Opts, liked bool) error {
	statusId, _ := opts.String("<status_id>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	status, ok := f.Status(statusId)
	if !ok {
		return feed.ErrStatusNotFound
	}
	if status.IsLiked != liked {
		status, err = f.ToggleLikeSync(ctx, statusId)
		if err != nil {
			return err
		}
	}
	printStatus(status, f.Identity())
	return nil
}

func comment(ctx context.Context, opts docopt.Opts) error {
	statusId, _ := opts.String("<status_id>")
	content, _ := opts.String("<content>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	status, err := f.AddCommentSync(ctx, statusId, content)
	if err != nil {
		return err
	}
	if status != nil {
		identity := f.Identity()
		for _, c := range status.Comments {
			printComment(c, identity)
		}
	}
	return nil
}

func uncomment(ctx context.Context, opts docopt.Opts) error {
	statusId, _ := opts.String("<status_id>")
	commentId, _ := opts.String("<comment_id>")

	f, err := newLoadedFeed(ctx, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.RemoveCommentSync(ctx, statusId, commentId)
	return err
}


func members(ctx context.Context, opts docopt.Opts) error {
	year, _ := opts.String("--year")

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	credentials, err := LoadCredentials(config.CredentialsPath)
	if err != nil {
		return err
	}
	if credentials == nil {
		return errNotSignedIn
	}

	api := feed.NewClassroomApi(config.ApiSettings())
	api.SetByJwt(credentials.Jwt)
	directory := feed.NewMemberDirectory(api)

	var list []*feed.Member
	if year == "" {
		list, err = directory.LoadDefaultSync(ctx)
	} else {
		list, err = directory.LoadSync(ctx, year)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s members\n", directory.Year(), humanize.Comma(int64(len(list))))
	for _, member := range list {
		if member.Email != "" {
			fmt.Printf("  %s  %s <%s>\n", member.Id, member.Name, member.Email)
		} else {
			fmt.Printf("  %s  %s\n", member.Id, member.Name)
		}
	}
	return nil
}
