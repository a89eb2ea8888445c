package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/IliaW/listing-alert-worker/config"
	"github.com/go-sql-driver/mysql"
)

const maxPingAttempts = 6

// Connect opens the delivery audit database and waits for it to answer, backing off
// 5s, 10s, ... between pings. It gives up after maxPingAttempts or when ctx ends.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	log.Info("connecting to the database...")
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	for attempt := 1; ; attempt++ {
		log.Info("ping the database.", slog.String("attempt", fmt.Sprintf("%d/%d", attempt, maxPingAttempts)))
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		log.Error("not responding.", slog.String("err", err.Error()))
		if attempt == maxPingAttempts {
			db.Close()
			return nil, fmt.Errorf("database did not answer after %d attempts: %w", attempt, err)
		}
		wait := time.Duration(5*attempt) * time.Second
		log.Info(fmt.Sprintf("wait %s", wait))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	log.Info("connected to the database!")

	return db, nil
}

func dsn(cfg *config.DatabaseConfig) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.Name
	c.AllowNativePasswords = true
	c.ParseTime = true
	return c.FormatDSN()
}
