// Command chat-server runs the chat server: it listens for TCP clients,
// reads newline-delimited messages, and answers each one through the
// keyword reply engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/go-chat/config"
	"github.com/cyberinferno/go-chat/floodguard"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/replyengine"
	"github.com/cyberinferno/go-chat/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		host       = flag.String("host", "", "listen host (overrides config)")
		port       = flag.Int("port", 0, "listen port (overrides config)")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewConsoleLogger("chat-server", level)

	engine := replyengine.NewKeywordEngine(
		keywordRules(cfg.Reply.Keywords),
		cfg.Reply.Fallbacks,
		cfg.Reply.TimeFormat,
	)

	srv := server.New(cfg.Server, engine, buildLimiter(cfg.Server.Flood), log)
	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Stop()
}

// keywordRules converts the config keyword table into engine rules.
func keywordRules(rules []config.KeywordRule) []replyengine.Rule {
	out := make([]replyengine.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, replyengine.Rule{Match: r.Match, Reply: r.Reply})
	}

	return out
}

// buildLimiter picks the flood limiter implementation from config: off,
// in-memory, or Redis-backed when a redis address is configured.
func buildLimiter(cfg config.FloodConfig) floodguard.Limiter {
	if !cfg.Enabled {
		return floodguard.Unlimited()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return floodguard.NewRedisLimiter(client, cfg.Limit, cfg.Window.Std())
	}

	return floodguard.NewMemoryLimiter(cfg.Limit, cfg.Window.Std())
}
