// Package main provides the entry point for the jaaz client core. It hosts
// the local API the desktop UI talks to, owns the authenticated session and
// runs the login flows from the command line.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/feitianbubu/jaaz/internal/api"
	"github.com/feitianbubu/jaaz/internal/api/handlers"
	"github.com/feitianbubu/jaaz/internal/auth"
	"github.com/feitianbubu/jaaz/internal/auth/nd99u"
	"github.com/feitianbubu/jaaz/internal/auth/primary"
	"github.com/feitianbubu/jaaz/internal/billing"
	"github.com/feitianbubu/jaaz/internal/browser"
	"github.com/feitianbubu/jaaz/internal/client"
	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/configsync"
	"github.com/feitianbubu/jaaz/internal/host"
	"github.com/feitianbubu/jaaz/internal/logging"
	"github.com/feitianbubu/jaaz/internal/models"
	"github.com/feitianbubu/jaaz/internal/session"
	"github.com/feitianbubu/jaaz/internal/watcher"
	"github.com/feitianbubu/jaaz/internal/wsevents"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var Version = "dev"

func init() {
	logging.SetupBaseLogger()
}

func main() {
	fmt.Printf("jaaz client core %s\n", Version)
	_ = godotenv.Load()

	var login bool
	var nd99uLogin bool
	var noBrowser bool
	var configPath string
	flag.BoolVar(&login, "login", false, "Login with jaaz username and password")
	flag.BoolVar(&nd99uLogin, "nd99u-login", false, "Login through the 99u identity provider")
	flag.BoolVar(&noBrowser, "no-browser", false, "Print the SSO login URL instead of opening a browser")
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.Parse()

	if configPath == "" {
		configPath = defaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if !cfg.Exists() {
		log.Infof("config file not found at %s, creating default configuration", configPath)
		if err = cfg.Save(); err != nil {
			log.Fatalf("write default config failed: %v", err)
		}
	}
	if cfg.LoggingToFile {
		if err = logging.EnableFileLogging(cfg.UserDataDir); err != nil {
			log.Warnf("file logging disabled: %v", err)
		}
	}

	store := auth.NewTokenStore(cfg.SessionFilePath())
	synchronizer := configsync.New(cfg)
	sessions := session.NewManager(store, primary.NewAuth(cfg), nd99u.NewAuth(cfg), synchronizer)
	backend := client.New(cfg, sessions.AccessToken)
	balance := billing.NewFetcher(backend)
	modelList := models.NewService(synchronizer.Providers, func() bool { return sessions.Status().IsLoggedIn })

	events := wsevents.NewManager()
	hostCtrl := hostController()
	sessions.Subscribe(func(s auth.Session) {
		events.Broadcast("auth_status_changed", s)
		events.Broadcast("models_changed", nil)
		if s.IsLoggedIn && hostCtrl.IsInstalled() {
			if err := hostCtrl.Start(); err != nil {
				log.Warnf("host companion start failed: %v", err)
			}
		}
	})

	handler := handlers.New(cfg, sessions, synchronizer, balance, modelList)
	server := api.NewServer(cfg, handler, events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case login:
		runPrimaryLogin(ctx, sessions)
	case nd99uLogin:
		runSSOLogin(ctx, stop, cfg, sessions, server, noBrowser)
	default:
		runServer(ctx, cfg, sessions, server)
	}
}

// runServer is the normal operating mode: serve the local API and watch the
// session file for external writes.
func runServer(ctx context.Context, cfg *config.Config, sessions *session.Manager, server *api.Server) {
	sessionWatcher := watcher.New(cfg.SessionFilePath(), sessions.Refresh)
	if err := sessionWatcher.Start(ctx); err != nil {
		log.Warnf("session file watcher unavailable: %v", err)
	}
	if err := server.Run(ctx); err != nil {
		log.Fatalf("api server failed: %v", err)
	}
}

// runPrimaryLogin prompts for credentials on stdin and commits the session.
func runPrimaryLogin(ctx context.Context, sessions *session.Manager) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')

	profile, err := sessions.LoginWithPrimary(ctx, primary.Credentials{
		Username: strings.TrimSpace(username),
		Password: strings.TrimSpace(password),
	})
	if err != nil && auth.KindOf(err) != auth.KindConfigSync {
		log.Fatalf("login failed: %v", err)
	}
	if err != nil {
		log.Warnf("logged in, but provider config sync failed: %v", err)
	}
	fmt.Printf("Logged in as %s\n", profile.Username)
}

// runSSOLogin starts the local server so the 99u callback can land, then
// sends the user to the identity provider and waits for the session commit.
func runSSOLogin(ctx context.Context, stop context.CancelFunc, cfg *config.Config, sessions *session.Manager, server *api.Server, noBrowser bool) {
	flow := nd99u.NewFlow(sessions.SSO())
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d%s", cfg.Port, cfg.SSO.CallbackPath)
	loginURL, err := flow.Begin(redirectURI)
	if err != nil {
		log.Fatalf("build login URL failed: %v", err)
	}

	unsubscribe := sessions.Subscribe(func(s auth.Session) {
		if s.IsLoggedIn {
			fmt.Printf("Logged in as %s\n", s.User.Username)
			stop()
		}
	})
	defer unsubscribe()

	if noBrowser || !browser.IsAvailable() {
		fmt.Printf("Open this URL in your browser to continue:\n%s\n", loginURL)
		if errClip := clipboard.WriteAll(loginURL); errClip == nil {
			fmt.Println("(the URL was copied to your clipboard)")
		}
	} else if err = browser.OpenURL(loginURL); err != nil {
		log.Warnf("open browser failed: %v", err)
		fmt.Printf("Open this URL in your browser to continue:\n%s\n", loginURL)
	}

	if err = server.Run(ctx); err != nil {
		log.Fatalf("api server failed: %v", err)
	}
}

// hostController resolves the optional desktop host runtime capability. The
// session core never sees it; only this wiring layer reacts to it.
func hostController() host.ProcessController {
	if path := strings.TrimSpace(os.Getenv("JAAZ_HOST_APP")); path != "" {
		return &host.ExecController{Path: path}
	}
	return host.Nop{}
}

// defaultConfigPath resolves the per-user config location, honoring the
// JAAZ_USER_DATA_DIR override the desktop shell sets.
func defaultConfigPath() string {
	if dir := strings.TrimSpace(os.Getenv("JAAZ_USER_DATA_DIR")); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".jaaz", "config.yaml")
}
