package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"fixforge-client/pkg/api"
	"fixforge-client/pkg/codefile"
	"fixforge-client/pkg/config"
	"fixforge-client/pkg/form"
	"fixforge-client/pkg/models"
	"fixforge-client/pkg/oauth"
	"fixforge-client/pkg/queue"
	"fixforge-client/pkg/screenshot"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type submitFlags struct {
	title        string
	description  string
	tag          string
	severity     string
	clientType   string
	code         string
	codeFile     string
	codeLanguage string
	screenshot   string
	userID       string
	token        string
	backend      string
	origin       string
}

func newSubmitCmd(a *app) *cobra.Command {
	var f submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a bug report",
		Example: `  fixforge submit -t "Login button does nothing" -d "Clicking it has no effect" --tag UI --severity High
  fixforge submit -t "Crash on save" -d "See snippet" --code-file ./save.ts --screenshot s3://shots/crash.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, a, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.title, "title", "t", "", "Bug title (required)")
	fl.StringVarP(&f.description, "description", "d", "", "What happened (required)")
	fl.StringVar(&f.tag, "tag", "", "Category: UI, API, Auth, Database or Performance")
	fl.StringVar(&f.severity, "severity", string(models.SeverityLow), "Low, Medium, High or Critical")
	fl.StringVar(&f.clientType, "client-type", string(models.ClientWeb), "Web, Extension or Desktop")
	fl.StringVar(&f.code, "code", "", "Code snippet")
	fl.StringVar(&f.codeFile, "code-file", "", "Read the code snippet from a file; the language follows its extension")
	fl.StringVar(&f.codeLanguage, "code-language", "", "Language of the snippet (see 'fixforge languages')")
	fl.StringVar(&f.screenshot, "screenshot", "", "Screenshot path or s3://bucket/key")
	fl.StringVar(&f.userID, "user-id", "", "Reporter id (defaults to the session user)")
	fl.StringVar(&f.token, "token", "", "Session access token (overrides FIXFORGE_ACCESS_TOKEN)")
	fl.StringVar(&f.backend, "backend", "", "Backend URL (overrides FIXFORGE_BACKEND_URL)")
	fl.StringVar(&f.origin, "origin", "", "Frontend origin for links (overrides FIXFORGE_APP_ORIGIN)")
	cmd.MarkFlagsMutuallyExclusive("code", "code-file")
	return cmd
}

func runSubmit(cmd *cobra.Command, a *app, f submitFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	backendURL := a.cfg.BackendURL
	if f.backend != "" {
		backendURL = f.backend
	}
	origin := a.cfg.AppOrigin
	if f.origin != "" {
		origin = f.origin
	}

	opts := []form.Option{
		form.WithLogger(a.log),
		form.WithObserver(statusPrinter(out)),
	}
	if a.cfg.AMQP.Enabled() {
		conn, ch, err := queue.ConnectRabbitMQ(a.cfg.AMQP.URL, "fixforge-cli submit")
		if err != nil {
			a.log.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer conn.Close()
			defer ch.Close()
			opts = append(opts, form.WithPublisher(queue.NewPublisher(ch, a.cfg.AMQP.Queue)))
		}
	}

	client := api.NewClient(backendURL, a.cfg.HTTPTimeout, api.WithLogger(a.log))
	ctrl := form.NewController(client, form.LinkNavigator{Origin: origin, Out: out}, opts...)

	if err := fillDraft(ctx, cmd, ctrl, a.cfg, f); err != nil {
		return err
	}

	route, err := ctrl.Submit(ctx)
	if err != nil {
		var httpErr *api.HTTPError
		if errors.As(err, &httpErr) {
			a.log.Debug("backend rejected report",
				zap.Int("status", httpErr.StatusCode),
				zap.String("body", httpErr.Body))
		}
		return err
	}
	a.log.Debug("submission routed", zap.String("route", route.Path()))
	return nil
}

// fillDraft moves flag values into the controller the way a user would fill
// in the form.
func fillDraft(ctx context.Context, cmd *cobra.Command, ctrl *form.Controller, cfg config.Config, f submitFlags) error {
	tag, err := models.ParseTag(f.tag)
	if err != nil {
		return err
	}
	severity, err := models.ParseSeverity(f.severity)
	if err != nil {
		return err
	}
	clientType, err := models.ParseClientType(f.clientType)
	if err != nil {
		return err
	}

	ctrl.SetTitle(f.title)
	ctrl.SetDescription(f.description)
	ctrl.SetTag(tag)
	ctrl.SetSeverity(severity)
	ctrl.SetClientType(clientType)

	userID, err := resolveUserID(cfg, f)
	if err != nil {
		return err
	}
	ctrl.SetUserID(userID)

	switch {
	case f.codeFile != "":
		data, err := os.ReadFile(f.codeFile)
		if err != nil {
			return fmt.Errorf("read code file: %w", err)
		}
		if err := ctrl.HandleCodeFileUpload(f.codeFile, data); err != nil {
			return err
		}
	case f.code != "":
		ctrl.OpenCodeEditor()
		ctrl.SetCode(f.code)
	}
	if cmd.Flags().Changed("code-language") {
		if !codefile.IsKnownLanguage(f.codeLanguage) {
			return fmt.Errorf("unknown code language %q", f.codeLanguage)
		}
		ctrl.SetCodeLanguage(f.codeLanguage)
	}

	if f.screenshot != "" {
		var store screenshot.ObjectStore
		if cfg.Storage.Enabled() {
			ms, err := screenshot.NewMinioStore(cfg.Storage)
			if err != nil {
				return err
			}
			store = ms
		}
		shot, err := screenshot.NewLoader(store).Load(ctx, f.screenshot)
		if err != nil {
			return err
		}
		ctrl.HandleFileChange(shot)
	}
	return nil
}

// resolveUserID prefers an explicit id, then the subject of the session
// token, then FIXFORGE_USER_ID. An empty result submits anonymously.
func resolveUserID(cfg config.Config, f submitFlags) (string, error) {
	if f.userID != "" {
		return f.userID, nil
	}
	token := f.token
	if token == "" {
		token = cfg.Session.AccessToken
	}
	if token != "" {
		claims, err := oauth.ParseAccessToken(token, cfg.Auth.JWTSecret)
		if err != nil {
			return "", fmt.Errorf("session token: %w", err)
		}
		return claims.UserID(), nil
	}
	return cfg.Session.UserID, nil
}

// statusPrinter writes each status change and the finding indicator once.
func statusPrinter(out io.Writer) func(form.State) {
	var last form.State
	ok := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	info := color.New(color.FgCyan)

	return func(s form.State) {
		if s.Status != last.Status {
			switch s.Status {
			case form.StatusSubmitted:
				ok.Fprintln(out, s.Status)
			case form.StatusFailed:
				bad.Fprintln(out, s.Status)
			case "":
			default:
				fmt.Fprintln(out, s.Status)
			}
		}
		if s.Finding && !last.Finding {
			info.Fprintln(out, "Finding solutions...")
		}
		last = s
	}
}
