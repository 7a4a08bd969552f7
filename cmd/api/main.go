package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/handler"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/notification"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/reconcile"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/session"
	"github.com/tamasbrandstadter/banking-gateway/cmd/api/transaction"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
	"github.com/tamasbrandstadter/banking-gateway/internal/cache"
	"github.com/tamasbrandstadter/banking-gateway/internal/db"
	"github.com/tamasbrandstadter/banking-gateway/internal/env"
	"github.com/tamasbrandstadter/banking-gateway/internal/mq"
)

func main() {
	log.SetFormatter(&log.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})

	envCfg, err := env.GetEnvCfg()
	if err != nil {
		log.Errorf("error parsing env vars: %v", err)
		return
	}

	redis, err := cache.NewConnection(cache.Config{
		Host:      envCfg.CacheHost,
		Pass:      envCfg.CachePass,
		Port:      envCfg.CachePort,
		LocalSize: envCfg.CacheLocalSize,
		LocalTTL:  envCfg.CacheLocalTTL,
	})
	if err != nil {
		log.Errorf("error connecting to redis: %v", err)
		return
	}

	defer func() {
		if err := redis.Close(); err != nil {
			log.Errorf("error closing redis: %v", err)
		}
	}()

	dbc := connectAudit(envCfg)
	if dbc != nil {
		defer func() {
			if err := dbc.Close(); err != nil {
				log.Errorf("error closing db: %v", err)
			}
		}()
	}

	var notifier reconcile.Notifier
	if n := connectNotifier(envCfg); n != nil {
		notifier = n
	}

	client := bankapi.NewClient(bankapi.Config{
		BaseURL:         envCfg.BankAPIURL,
		Timeout:         envCfg.BankAPITimeout,
		ReadAttempts:    envCfg.ReadAttempts,
		ReadDelay:       envCfg.ReadRetryDelay,
		BreakerFailures: envCfg.BreakerFailures,
		BreakerTimeout:  envCfg.BreakerTimeout,
	})

	reconciler := reconcile.New(client, cache.NewSnapshots(redis.Store, envCfg.SnapshotTTL), notifier)
	validator := transaction.NewValidator(client, reconciler, transaction.Limits{
		Deposit:    envCfg.DepositLimit,
		Withdrawal: envCfg.WithdrawalLimit,
		Transfer:   envCfg.TransferLimit,
	})
	sessions := session.NewStore(redis.Store, envCfg.SessionTTL)

	server := http.Server{
		Addr:           fmt.Sprintf(":%d", envCfg.Port),
		Handler:        handler.NewApplication(client, sessions, reconciler, validator, dbc),
		ReadTimeout:    envCfg.ReadTimeout,
		WriteTimeout:   envCfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Infof("server started successfully, listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server failed to start: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), envCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("shutdown: Graceful shutdown did not complete in %v : %v", envCfg.ShutdownTimeout, err)

		if err := server.Close(); err != nil {
			log.Warnf("shutdown: Error killing server : %v", err)
		}
	}
}

// connectAudit returns nil when postgres is not configured or unreachable,
// the gateway then runs without an audit trail.
func connectAudit(envCfg env.Cfg) *sqlx.DB {
	if envCfg.DBName == "" {
		log.Warn("no database configured, submissions will not be audited")
		return nil
	}

	dbc, err := db.NewConnection(db.Config{
		User: envCfg.DBUser,
		Pass: envCfg.DBPass,
		Host: envCfg.DBHost,
		Name: envCfg.DBName,
		Port: envCfg.DBPort,
	})
	if err != nil {
		log.Errorf("error connecting to db, submissions will not be audited: %v", err)
		return nil
	}

	if err := db.Migrate(dbc); err != nil {
		log.Errorf("error migrating db, submissions will not be audited: %v", err)
		_ = dbc.Close()
		return nil
	}

	return dbc
}

func dialLink(cfg mq.Config) (notification.Link, error) {
	conn, err := mq.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func connectNotifier(envCfg env.Cfg) *notification.Notifier {
	if envCfg.MQHost == "" {
		log.Warn("no mq configured, completed transactions will not be announced")
		return nil
	}

	mqCfg := mq.Config{
		User:         envCfg.MQUser,
		Pass:         envCfg.MQPass,
		Host:         envCfg.MQHost,
		Port:         envCfg.MQPort,
		MaxReconnect: envCfg.MQMaxReconnect,
	}

	conn, err := mq.NewConnection(mqCfg)
	if err != nil {
		log.Errorf("error connecting to mq: %v", err)
		return nil
	}

	if err := conn.DeclareExchange(notification.ExchangeName); err != nil {
		log.Errorf("error declaring exchange: %v", err)
		_ = conn.Close()
		return nil
	}

	notifier := notification.NewNotifier(conn)
	go notifier.ReconnectOnClose(mqCfg, conn.NotifyClose(make(chan *amqp.Error, 1)), dialLink)

	return notifier
}
