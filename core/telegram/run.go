package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/dmbot/core/config"
	"github.com/m3rciful/dmbot/core/logger"
	"github.com/m3rciful/dmbot/core/reporting"
	tghelpers "github.com/m3rciful/dmbot/core/telegram/helpers"
	"github.com/m3rciful/dmbot/core/telegram/netutil"
	tgsender "github.com/m3rciful/dmbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	// Routes may be built lazily once the bot exists, e.g. for handlers
	// that call the API outside of a tele.Context.
	Routes     []Route
	RoutesFunc func(rt Runtime) []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

func tgLog() *slog.Logger { return logger.Component("tg") }

// RunTelegram builds the bot from opts and serves updates until ctx is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	start := time.Now()
	bot, popts, err := newBot(opts.Config)
	if err != nil {
		return err
	}
	logMode(ctx, bot, popts, logger.Took(start))
	if !popts.IsWebhook() && !opts.DisableWebhookCleanup {
		clearWebhook(ctx, bot)
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
		defer tghelpers.SetDispatcher(nil)
	}
	defer dispatcher.Close()

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: opts.Registry}
	wire(bot, opts, rt)

	// a missing menu is cosmetic, the bot still serves commands
	_ = InitBotCommands(bot, opts.Registry)
	logIdentity(ctx, bot)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func newBot(cfg *coreconfig.Config) (*tele.Bot, PollerOptions, error) {
	popts := PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen:      cfg.Webhook.Listen,
			Port:        cfg.Webhook.Port,
			PublicURL:   cfg.Webhook.PublicURL(),
			SecretToken: cfg.Webhook.SecretToken,
			CertPath:    cfg.Webhook.CertificatePath,
			KeyPath:     cfg.Webhook.KeyPath,
		},
	}
	copts := HTTPClientOptions{PerSecond: cfg.RateLimit.OverallPerSecond}
	if !popts.IsWebhook() {
		copts.LongPollTimeout = popts.LongPollTimeout()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  BuildPoller(popts),
		Client:  BuildHTTPClient(copts),
		OnError: onBotError,
	})
	if err != nil {
		return nil, popts, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, popts, nil
}

func logMode(ctx context.Context, bot *tele.Bot, popts PollerOptions, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", took)}
	if wh, ok := bot.Poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
			slog.Bool("tls", wh.TLS != nil),
			slog.Bool("secret", wh.SecretToken != ""),
		)
	} else {
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(popts.LongPollTimeout()/time.Second)),
		)
	}
	logger.LogEvent(ctx, tgLog(), slog.LevelInfo, "mode", attrs...)
}

// clearWebhook removes a webhook left by an earlier deployment; getUpdates
// is refused while one is set.
func clearWebhook(ctx context.Context, bot *tele.Bot) {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.LogEvent(ctx, tgLog(), slog.LevelWarn, "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", netutil.RedactToken(err.Error())),
		)
		return
	}
	logger.LogEvent(ctx, tgLog(), slog.LevelInfo, "delete_webhook", slog.String("status", "ok"))
}

func wire(bot *tele.Bot, opts RunOptions, rt Runtime) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	routes := opts.Routes
	if opts.RoutesFunc != nil {
		routes = append(append([]Route(nil), routes...), opts.RoutesFunc(rt)...)
	}
	for _, r := range routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
}

// serve runs the poller until ctx is done or the bot stops on its own.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func logIdentity(ctx context.Context, bot *tele.Bot) {
	if bot == nil || bot.Me == nil {
		return
	}
	me := bot.Me
	tgLog().LogAttrs(ctx, slog.LevelInfo,
		identityLine(me),
		slog.String("event", "identity"),
		slog.Int64("bot_id", me.ID),
		slog.String("username", me.Username),
	)
}

func identityLine(me *tele.User) string {
	return fmt.Sprintf("Bot «%s» is running! Link: https://t.me/%s", fullName(me), me.Username)
}

// fullName joins the first and last name of u.
func fullName(u *tele.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// onBotError is the last-resort handler for errors returned by routes.
func onBotError(err error, c tele.Context) {
	if err == nil {
		return
	}
	ctx := logger.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, tgLog(), slog.LevelError, "update.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(netutil.RedactToken(err.Error()), 512)),
		slog.String("error_kind", netutil.ClassifyError(err)),
	)
	reporting.Capture(ctx, err)
}
