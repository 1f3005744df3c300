package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/orgpulse/internal/callback"
	"github.com/johanforsgren/orgpulse/internal/config"
	"github.com/johanforsgren/orgpulse/internal/logger"
	"github.com/johanforsgren/orgpulse/internal/provider/statsapi"
	"github.com/johanforsgren/orgpulse/internal/query"
	"github.com/johanforsgren/orgpulse/internal/results"
	"github.com/johanforsgren/orgpulse/internal/session"
	"github.com/johanforsgren/orgpulse/internal/storage"
	"github.com/johanforsgren/orgpulse/internal/ui"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "orgpulse: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("orgpulse", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if initConfig, _ := fs.GetBool("init-config"); initConfig {
		path, _ := fs.GetString("config")
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()
	debug, _ := fs.GetBool("debug")
	logger.SetDebug(debug)
	logger.Log("orgpulse starting, service %s", cfg.APIURL)

	store, err := storage.NewLocalCredentialStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	service, err := statsapi.NewProvider(store, statsapi.Options{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.HTTP.Timeout,
		RateLimit:       cfg.HTTP.RateLimit,
		Burst:           cfg.HTTP.Burst,
		BreakerFailures: cfg.HTTP.BreakerFailures,
		BreakerCooldown: cfg.HTTP.BreakerCooldown,
	})
	if err != nil {
		return err
	}

	auth := session.NewAuthorizer(cfg.GitHub.ClientID, cfg.GitHub.Scopes)
	if cfg.GitHub.AuthorizeURL != "" {
		auth.AuthURL = cfg.GitHub.AuthorizeURL
	}
	controller := session.NewController(store, service, auth, session.OpenBrowser)

	machine := query.New(service, results.New(), query.Options{
		PageSize:       cfg.Query.PageSize,
		SearchDebounce: cfg.Query.SearchDebounce,
	})

	tokens := make(chan string, 1)
	var server *callback.Server
	callbackURL := ""
	if cfg.Callback.Addr != "" {
		server = callback.NewServer(cfg.Callback.Addr, func(token string) {
			offerLatest(tokens, token)
		})
		if err := server.Start(); err != nil {
			logger.LogError("CALLBACK_START", cfg.Callback.Addr, err)
			server = nil
		} else {
			callbackURL = server.URL()
		}
	}

	token, _ := fs.GetString("token")
	model := ui.NewModel(controller, machine, ui.Options{
		InitialToken: token,
		CallbackURL:  callbackURL,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		for {
			select {
			case t := <-tokens:
				p.Send(ui.CallbackTokenMsg{Token: t})
			case <-done:
				return
			}
		}
	}()

	_, runErr := p.Run()
	close(done)

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.LogError("CALLBACK_SHUTDOWN", cfg.Callback.Addr, err)
		}
	}

	logger.Log("orgpulse stopped")
	return runErr
}

// offerLatest puts token on ch, replacing a pending token that the program
// has not picked up yet.
func offerLatest(ch chan string, token string) {
	for {
		select {
		case ch <- token:
			return
		default:
		}
		select {
		case <-ch:
			logger.Log("Callback: Replaced a pending credential with a newer one")
		default:
		}
	}
}
