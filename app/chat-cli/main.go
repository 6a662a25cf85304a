package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/config"
	"github.com/yoockh/whalechat/internal/bootstrap"
	"github.com/yoockh/whalechat/internal/cache"
	"github.com/yoockh/whalechat/internal/logger"
	"github.com/yoockh/whalechat/internal/repositories/kv"
	"github.com/yoockh/whalechat/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config validation failed")
	}
	// keep the terminal for the conversation
	log := logger.NewWithOutput(cfg.LogLevel, os.Stderr)

	provider, err := bootstrap.NewLLM(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to create chat provider")
	}
	defer provider.Close()

	persona, err := services.LoadPersona(cfg.PersonaFile)
	if err != nil {
		log.WithError(err).Warn("persona file unusable, using built-in persona")
		persona = services.DefaultPersona()
	}

	chat := services.NewChatService(services.ChatDeps{
		LLM:     provider,
		History: kv.NewHistoryRepo(cache.NewMemoryCache(), 0),
		Persona: persona,
		Logger:  log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stdout, "chatting with %s via %s, Ctrl+D to quit\n", persona.Name, provider.Name())
	if err := run(ctx, chat, os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Error("chat loop stopped")
	}
}

// run reads one message per line until EOF or ctx is cancelled.
func run(ctx context.Context, chat services.ChatService, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			// failures come back with the placeholder reply
			reply, _ := chat.Reply(ctx, services.DefaultSessionID, line)
			fmt.Fprintf(out, "reply: %s\n", reply)
		}
	}
}
