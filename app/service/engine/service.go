// Package engine runs the interactive chat loop: lines read from the
// terminal are either commands or turns submitted to the conversation.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AA-Fatima/599-cal/app/client/admin"
	"github.com/AA-Fatima/599-cal/app/config"
	"github.com/AA-Fatima/599-cal/app/service/conversation"
	"github.com/AA-Fatima/599-cal/app/service/history"
	"github.com/AA-Fatima/599-cal/app/service/queue"
	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const historyLimit = 10

type Service struct {
	cfg             *config.Config
	conversationSvc *conversation.Service
	queueSvc        *queue.Service
	historySvc      *history.Service
	adminClient     *admin.Client

	in  io.Reader
	out io.Writer
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:             do.MustInvoke[*config.Config](di),
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		queueSvc:        do.MustInvoke[*queue.Service](di),
		historySvc:      do.MustInvoke[*history.Service](di),
		adminClient:     do.MustInvoke[*admin.Client](di),
		in:              os.Stdin,
		out:             os.Stdout,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	slog.Debug("Engine started", "server", s.cfg.Server.BaseURL)

	s.printLog()
	s.prefetchAdmin(ctx)

	// The reader stays blocked on the terminal when the loop below exits;
	// it dies with the process.
	go s.readLoop(ctx)

	if err := s.processLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// prefetchAdmin warms the dish and missing-dish views on startup, the
// way the admin screen loads both of its tabs. An unreachable admin
// service is logged, never fatal.
func (s *Service) prefetchAdmin(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dishes, err := s.adminClient.Dishes(ctx)
		if err != nil {
			return fmt.Errorf("failed to load dishes: %w", err)
		}

		slog.Debug("Loaded dishes", "count", len(dishes))
		return nil
	})

	g.Go(func() error {
		missing, err := s.adminClient.MissingDishes(ctx)
		if err != nil {
			return fmt.Errorf("failed to load missing dishes: %w", err)
		}

		slog.Debug("Loaded missing dishes", "count", len(missing))
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Warn("Admin service unavailable", "error", err)
	}
}

func (s *Service) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(s.in)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.queueSvc.Add(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("Failed to read input", "error", err)
	}

	// EOF ends the session
	s.queueSvc.Add("/quit")
}

func (s *Service) processLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-s.queueSvc.Channel():
			if !ok {
				return context.Canceled
			}

			if err := s.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (s *Service) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return nil
	case line == "/quit":
		return context.Canceled
	case line == "/clear":
		return s.handleClear()
	case line == "/history":
		return s.handleHistory(ctx)
	case line == "/dishes":
		return s.handleDishes(ctx)
	case line == "/missing":
		return s.handleMissing(ctx)
	case strings.HasPrefix(line, "/usda "):
		return s.handleUsdaSearch(ctx, strings.TrimPrefix(line, "/usda "))
	case strings.HasPrefix(line, "/"):
		s.println("Unknown command. Available: /clear /history /dishes /missing /usda <query> /quit")
		return nil
	}

	return s.handleTurn(ctx, line)
}

func (s *Service) handleTurn(ctx context.Context, text string) error {
	start := time.Now()

	bot, err := s.conversationSvc.SubmitTurn(ctx, text)
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrBlankInput):
			return nil
		case errors.Is(err, conversation.ErrTurnPending):
			s.println("Still working on the previous question, one moment...")
			return nil
		case errors.Is(err, conversation.ErrStaleTurn):
			return nil
		default:
			return fmt.Errorf("failed to submit turn: %w", err)
		}
	}

	slog.Debug("Processed turn",
		"text", text,
		"duration", time.Since(start))

	s.println(bot.Text)

	return nil
}

func (s *Service) handleClear() error {
	if err := s.conversationSvc.Clear(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}

	s.printLog()

	return nil
}

func (s *Service) handleHistory(ctx context.Context) error {
	calculations, err := s.historySvc.Recent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(calculations) == 0 {
		s.println("No saved calculations yet.")
		return nil
	}

	for _, entry := range calculations {
		s.println(fmt.Sprintf("%s  %s (%q): %.0f kcal",
			entry.CreatedAt.Format("2006-01-02 15:04"), entry.Dish, entry.Query, entry.TotalCalories))
	}

	return nil
}

func (s *Service) handleDishes(ctx context.Context) error {
	dishes, err := s.adminClient.Dishes(ctx)
	if err != nil {
		s.println("Could not load dishes right now.")
		slog.Warn("Failed to load dishes", "error", err)
		return nil
	}

	names := pie.Map(dishes, func(d admin.Dish) string {
		return d.DishName
	})

	s.println("Known dishes: " + strings.Join(names, ", "))

	return nil
}

func (s *Service) handleMissing(ctx context.Context) error {
	missing, err := s.adminClient.MissingDishes(ctx)
	if err != nil {
		s.println("Could not load missing dishes right now.")
		slog.Warn("Failed to load missing dishes", "error", err)
		return nil
	}

	if len(missing) == 0 {
		s.println("No missing dishes logged.")
		return nil
	}

	for _, dish := range missing {
		s.println(fmt.Sprintf("%s (asked as %q)", dish.DishName, dish.UserQuery))
	}

	return nil
}

func (s *Service) handleUsdaSearch(ctx context.Context, query string) error {
	results, err := s.adminClient.SearchUsda(ctx, strings.TrimSpace(query))
	if err != nil {
		s.println("USDA search is unavailable right now.")
		slog.Warn("USDA search failed", "error", err)
		return nil
	}

	if len(results) == 0 {
		s.println("No USDA matches.")
		return nil
	}

	for _, result := range results {
		s.println(fmt.Sprintf("%d  %s", result.FdcID, result.Name))
	}

	return nil
}

func (s *Service) printLog() {
	for _, msg := range s.conversationSvc.Messages() {
		if msg.Origin == conversation.OriginBot {
			s.println(msg.Text)
		}
	}
}

func (s *Service) println(text string) {
	fmt.Fprintln(s.out, text)
}
