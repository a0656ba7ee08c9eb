package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicedesk/internal/calls"
	"voicedesk/internal/config"
	"voicedesk/internal/events"
	"voicedesk/internal/history"
	"voicedesk/internal/httpapi"
	"voicedesk/internal/messages"
	"voicedesk/internal/reporting"
	"voicedesk/internal/telephony"
	"voicedesk/pkg/logger"
	"voicedesk/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	notifier := events.NewNotifier(log)

	// Redis is optional. Without it history lives only in memory and
	// the active-call slot is guarded per process.
	var callOpts []history.Option[calls.Record]
	var msgOpts []history.Option[messages.Record]
	var trackerOpts []calls.Option
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		store := history.NewRedisStore(rdb)
		callOpts = append(callOpts, history.WithStore[calls.Record](store, history.KeyCallHistory))
		msgOpts = append(msgOpts, history.WithStore[messages.Record](store, history.KeySMSHistory))

		guard, err := utils.NewCallSlotGuard(rdb, "activeCallSlot", uuid.NewString(), 4*time.Hour)
		if err != nil {
			log.Error("call slot guard init failed", "err", err)
			os.Exit(1)
		}
		trackerOpts = append(trackerOpts, calls.WithSlotGuard(guard))
	}

	callHistory := history.NewLedger[calls.Record](log, callOpts...)
	msgHistory := history.NewLedger[messages.Record](log, msgOpts...)

	var live telephony.Client
	if cfg.Twilio.HasLiveCredentials() {
		live = telephony.NewTwilioClient(cfg.Twilio, cfg.App.ProviderTimeout)
	}
	sim := telephony.NewSimulatedClient(cfg.Twilio.PhoneNumber)

	resolver := telephony.NewResolver(cfg.Twilio, live, sim, notifier, log)
	capability := resolver.Resolve(rootCtx)
	log.Info("provider capability", "mode", string(capability.Mode), "reason", capability.Reason)

	trackerOpts = append(trackerOpts,
		calls.WithDispatchTimeout(cfg.App.ProviderTimeout),
		calls.WithLogger(log),
	)
	tracker := calls.NewTracker(resolver, callHistory, notifier, trackerOpts...)

	msgService := messages.NewService(resolver, msgHistory, notifier,
		messages.WithTimeout(cfg.App.ProviderTimeout),
		messages.WithLogger(log),
	)

	reports := reporting.NewService(callHistory, msgHistory)

	h := httpapi.Handlers{
		Tracker:        tracker,
		Messages:       msgService,
		Resolver:       resolver,
		Reporting:      reports,
		CallHistory:    callHistory,
		MessageHistory: msgHistory,
		VoicePrompt: telephony.PromptSpec{
			Greeting: "Thank you for calling. Please hold while we connect you.",
		},
		Timeout: cfg.App.ProviderTimeout,
	}
	feed := httpapi.NewEventFeed(notifier, log)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.CORS())
	registerRoutes(r, h, feed)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "mode", string(capability.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
