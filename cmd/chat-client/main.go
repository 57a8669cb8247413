// Command chat-client is an interactive terminal client for the chat server.
// It connects over TCP, sends each line typed on stdin, and prints the
// server's replies as they arrive.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/go-chat/config"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/message"
	"github.com/cyberinferno/go-chat/session"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		host       = flag.String("host", "", "server host (overrides config)")
		port       = flag.Int("port", 0, "server port (overrides config)")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *host != "" {
		cfg.Client.Host = *host
	}
	if *port != 0 {
		cfg.Client.Port = *port
	}

	level := zerolog.Disabled
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewConsoleLogger("chat-client", level)

	sess := session.New(session.Config{
		MaxMessageSize: cfg.Client.MaxMessageSize,
		ConnectTimeout: cfg.Client.ConnectTimeout.Std(),
		WriteTimeout:   cfg.Client.WriteTimeout.Std(),
	}, log)

	// Replies print from the receive goroutine; stdout writes are already
	// line-atomic for this purpose.
	sess.OnMessage(func(_ string, payload []byte) {
		fmt.Printf("server> %s\n", payload)
	})

	done := make(chan struct{})
	sess.OnStateChange(func(_ string, state session.State, err error) {
		if state != session.StateDisconnected {
			return
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "connection lost: %v\n", err)
		}

		close(done)
	})

	addr := cfg.ClientAddr()
	if err := sess.Connect(addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("connected to %s (type a message, or %q to quit)\n", addr, "bye")

	go func() {
		stdin := bufio.NewScanner(os.Stdin)
		for stdin.Scan() {
			line := strings.TrimSpace(stdin.Text())
			if line == "" {
				continue
			}

			if err := sess.SendText(line); err != nil {
				if errors.Is(err, session.ErrNotConnected) {
					return
				}

				if errors.Is(err, message.ErrMessageTooLong) {
					fmt.Fprintf(os.Stderr, "message too long (max %d bytes)\n", cfg.Client.MaxMessageSize)
					continue
				}

				fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
				return
			}
		}

		// Stdin closed (ctrl-d); hang up.
		_ = sess.Disconnect()
	}()

	// The session ends when the server closes the connection (e.g. after
	// "bye"), the link drops, or stdin is exhausted.
	<-done
	_ = sess.Disconnect()
	fmt.Println("disconnected")
}
