// Package server wires the alert trigger, contact & service directories and
// location provider behind an authenticated HTTP API.
package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/safecall/server/alert"
	"github.com/Daskott/safecall/server/auth/key"
	"github.com/Daskott/safecall/server/contacts"
	"github.com/Daskott/safecall/server/dial"
	"github.com/Daskott/safecall/server/hub"
	"github.com/Daskott/safecall/server/location"
	"github.com/Daskott/safecall/server/logger"
	"github.com/Daskott/safecall/server/notify"
	"github.com/Daskott/safecall/server/services"
	"github.com/Daskott/safecall/server/twilio"
	"github.com/Daskott/safecall/server/work"
	"github.com/Daskott/safecall/shared"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type App struct {
	config shared.ServerConfig
	logg   *zap.SugaredLogger

	keyPair *key.KeyPair
	jwks    key.JWKS

	trigger  *alert.Trigger
	contacts *contacts.Directory
	services *services.Directory
	beacon   *location.Beacon
	locator  *location.Provider

	hub        *hub.Hub
	workerPool *work.WorkerPoolAdapter
	twilio     *twilio.ClientWrapper
	notifier   *notify.SmsNotifier
}

func NewApp(config shared.ServerConfig, clk clock.Clock, logg *zap.SugaredLogger) (*App, error) {
	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem([]byte(config.Safecall.PrivateKeyPem))
	if err != nil {
		return nil, err
	}

	keyPairJWK, err := keyPair.JWK()
	if err != nil {
		return nil, err
	}

	dialer := dial.NewIntentDialer(logg)
	beacon := location.NewBeacon(clk)

	app := &App{
		config:   config,
		logg:     logg,
		keyPair:  keyPair,
		jwks:     key.ExportJWKAsJWKS(keyPairJWK),
		contacts: contacts.NewDirectory(dialer, contacts.DefaultSeed()),
		services: services.NewDirectory(dialer),
		beacon:   beacon,
		locator:  location.NewProvider(beacon, location.DefaultOptions, clk),
		hub:      hub.NewHub(config.Safecall.AllowedOrigins, logg),
		workerPool: work.NewWorkerAdapter(
			config.Safecall.Cron.TimeZone,
			config.Safecall.Work.RetryDelaySeconds,
			logg,
		),
		twilio: twilio.NewClient(config.Twilio, config.Safecall.AppUrl, logg),
	}

	app.notifier = notify.NewSmsNotifier(app.workerPool, app.twilio, config.Twilio.Recipients, config.Safecall.OwnerName, logg)
	app.trigger = alert.NewTrigger(clk, app.locator, alert.Sinks{app.hub, app.notifier}, logg)

	if err := app.registerJobHandlers(); err != nil {
		return nil, err
	}

	return app, nil
}

// Start starts the signal hub, worker pool & periodic jobs
func (app *App) Start() error {
	go app.hub.Run()

	if err := app.workerPool.Start(); err != nil {
		return err
	}

	return app.enqueueJobs()
}

// Stop cancels any running countdown first, so nothing is published into
// a stopped hub or worker pool
func (app *App) Stop() {
	app.trigger.Close()
	app.workerPool.Stop()
	app.hub.Stop()
}

func Start(configArg *viper.Viper, devMode bool) {
	logg := logger.NewLogger(devMode)

	config, err := LoadConfig(configArg)
	fatalOnError(logg, err)

	app, err := NewApp(config, clock.New(), logg)
	fatalOnError(logg, err)
	fatalOnError(logg, app.Start())

	if app.twilio.DryRun() {
		logg.Warn("No twilio credentials configured, alert sms will only be logged")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Safecall.Listener.Port),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go serve(server, logg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cleanup(app, server)
}

// LoadConfig unmarshals & validates the server config
func LoadConfig(configArg *viper.Viper) (shared.ServerConfig, error) {
	config := shared.ServerConfig{}
	if err := configArg.Unmarshal(&config); err != nil {
		return config, errors.Wrap(err, "unable to decode server config")
	}

	if err := newValidator().Struct(config); err != nil {
		return config, fmt.Errorf("invalid server config: %v", validationProblems(err))
	}

	return config, nil
}
