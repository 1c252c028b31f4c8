package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/soobo/sleeptype/internal/config"
	"github.com/soobo/sleeptype/internal/database"
	"github.com/soobo/sleeptype/internal/i18n"
	"github.com/soobo/sleeptype/internal/migrations"
	"github.com/soobo/sleeptype/internal/ratelimit"
	"github.com/soobo/sleeptype/internal/server"
	"github.com/soobo/sleeptype/internal/session"
	"github.com/soobo/sleeptype/internal/sleeptype"
	"github.com/soobo/sleeptype/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sleeptype",
		Short:         "Sleep type survey backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	root.AddCommand(serve, migrateCmd(), scoreCmd(), hashPasswordCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	return root
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	docs := store.New(db)
	checks := map[string]server.Checker{"sqlite": server.CheckFunc(docs.Ping)}

	// --- Rate limiting ---
	var limiter ratelimit.Limiter = ratelimit.NewMemory()
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		limiter = ratelimit.NewRedis(rdb)
		checks["redis"] = server.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	msgs, err := i18n.New(cfg.DefaultLang, logger)
	if err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg, logger, server.Deps{
		Sessions: session.NewService(docs, logger),
		Data:     docs,
		Limiter:  limiter,
		Messages: msgs,
		Broker:   server.NewBroker(),
		Checks:   checks,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := database.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return fmt.Errorf("connecting to sqlite: %w", err)
			}
			defer db.Close()

			if err := migrations.Run(cmd.Context(), db); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			v, err := migrations.Version(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at version %d\n", cfg.DBPath, v)
			return nil
		},
	}
}

// scoreOutput is what the score command prints.
type scoreOutput struct {
	Key          string           `json:"key"`
	ResultType   string           `json:"resultType"`
	ResultScores sleeptype.Scores `json:"resultScores"`
	TotalAnswers int              `json:"totalAnswers"`

	ResultDetail *sleeptype.ResultType `json:"resultDetail,omitempty"`
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [answers.json]",
		Short: "Score a set of answers without touching the database",
		Long: "Reads a JSON array of answers, or an object with an \"answers\" array,\n" +
			"from the named file or stdin and prints the resulting sleep type.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			answers, err := readAnswers(in)
			if err != nil {
				return err
			}
			out, err := scoreAnswers(answers)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func readAnswers(r io.Reader) ([]sleeptype.Answer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading answers: %w", err)
	}

	var answers []sleeptype.Answer
	if err := json.Unmarshal(data, &answers); err == nil {
		return answers, nil
	}
	var wrapped struct {
		Answers []sleeptype.Answer `json:"answers"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding answers: %w", err)
	}
	return wrapped.Answers, nil
}

func scoreAnswers(answers []sleeptype.Answer) (scoreOutput, error) {
	set, err := sleeptype.Merge(sleeptype.AnswerSet{}, answers, time.Now())
	if err != nil {
		return scoreOutput{}, err
	}
	res := sleeptype.DefaultTable.Score(set)
	out := scoreOutput{
		Key:          res.Key(),
		ResultType:   res.Type,
		ResultScores: res.Scores,
		TotalAnswers: set.Len(),
	}
	if rt, ok := sleeptype.DefaultTable.Lookup(out.Key); ok {
		out.ResultDetail = &rt
	}
	return out, nil
}

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
