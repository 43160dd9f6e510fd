package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"regdesk/internal/backend"
	"regdesk/internal/biometric"
	"regdesk/internal/config"
	"regdesk/internal/console"
	"regdesk/internal/session"
	"regdesk/internal/store"
)

// app holds the dependencies shared by every command. Fields left nil are
// built from the configuration on first use.
type app struct {
	cfg    config.Console
	logger *zap.Logger
	out    io.Writer

	api      *backend.Client
	store    session.Store
	platform biometric.Platform

	closers []func() error
}

func (a *app) init() error {
	if a.logger == nil {
		logger, err := config.NewLogger(a.cfg.Logging)
		if err != nil {
			return err
		}
		a.logger = logger
	}
	if a.api == nil {
		a.api = backend.New(a.cfg.APIURL, a.cfg.HTTPTimeout)
	}
	if a.store == nil {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		a.store = st
	}
	return nil
}

func (a *app) openStore() (session.Store, error) {
	switch a.cfg.SessionBackend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "file", "":
		return session.NewFileStore(a.cfg.SessionFile), nil
	case "redis":
		r := store.NewRedis(a.cfg.RedisAddr)
		if r == nil {
			return nil, fmt.Errorf("session backend redis needs REDIS_ADDR")
		}
		a.closers = append(a.closers, r.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if !r.Healthy(ctx) {
			return nil, fmt.Errorf("redis at %s is not reachable", a.cfg.RedisAddr)
		}
		return session.NewRedisStore(r.Client, a.cfg.RedisNamespace, a.cfg.SessionTTL), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.SessionBackend)
	}
}

func (a *app) openPlatform() (biometric.Platform, error) {
	if a.platform != nil {
		return a.platform, nil
	}
	switch a.cfg.Capture.Platform {
	case "agent", "":
		a.platform = biometric.NewAgentPlatform(a.cfg.Capture.AgentURL, a.cfg.Capture.AgentTimeout)
	case "soft":
		a.platform = biometric.NewSoftPlatform(a.cfg.Capture.Origin)
	case "none":
		a.platform = biometric.NoPlatform{}
	default:
		return nil, fmt.Errorf("unknown capture platform %q", a.cfg.Capture.Platform)
	}
	return a.platform, nil
}

func (a *app) capturer() (*biometric.Capturer, error) {
	platform, err := a.openPlatform()
	if err != nil {
		return nil, err
	}
	return biometric.NewCapturer(platform,
		biometric.WithRelyingParty(a.cfg.Capture.RPName, a.cfg.Capture.Origin),
		biometric.WithTimeout(a.cfg.Capture.Timeout),
		biometric.WithLogger(a.logger.Named("capture")),
		biometric.WithStateHook(func(slot biometric.Slot, st biometric.State) {
			if st == biometric.StateScanning {
				fmt.Fprintf(a.out, "%s: place your finger on the reader\n", slot)
			}
		}),
	), nil
}

func (a *app) adminConsole() *console.AdminConsole {
	return console.NewAdminConsole(a.api, a.store, a.logger.Named("admin"))
}

func (a *app) departmentConsole() (*console.DepartmentConsole, error) {
	c, err := a.capturer()
	if err != nil {
		return nil, err
	}
	return console.NewDepartmentConsole(a.api, a.store, c, a.logger.Named("department"),
		console.WithProfileBinding(a.cfg.Capture.BindProfile)), nil
}

func (a *app) close() {
	for _, fn := range a.closers {
		_ = fn()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
