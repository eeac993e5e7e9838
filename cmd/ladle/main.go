// Command ladle imports recipes from websites and pasted text, either as
// an HTTP API server or directly from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ladle-dev/ladle/internal/config"
	"github.com/ladle-dev/ladle/internal/demosite"
	"github.com/ladle-dev/ladle/internal/extract"
	"github.com/ladle-dev/ladle/internal/fetch"
	"github.com/ladle-dev/ladle/internal/importer"
	"github.com/ladle-dev/ladle/internal/llm"
	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/server"
	"github.com/ladle-dev/ladle/internal/store"
	"github.com/ladle-dev/ladle/internal/webclient"
)

func main() {
	app := &cli.App{
		Name:  "ladle",
		Usage: "import recipes from websites and pasted text",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config file"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress log output"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			demoCommand(),
			importCommand(),
			recipesCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, _, _, err := config.Load(c.String("config"))
	return cfg, err
}

func newLogger(c *cli.Context, component string) logging.Logger {
	if c.Bool("quiet") {
		return logging.Nop{}
	}
	return logging.NewJSONLoggerTo(os.Stderr, component)
}

// pipeline is the assembled import stack for one CLI invocation.
type pipeline struct {
	importer *importer.Importer
	store    *store.Store
	wc       webclient.WebClient
}

func (p *pipeline) Close() {
	if p.wc != nil {
		p.wc.Close()
	}
	if p.store != nil {
		p.store.Close()
	}
}

func buildPipeline(cfg *config.Config, logger logging.Logger, withStore bool) (*pipeline, error) {
	webclient.RegisterDefaults()

	wc, err := webclient.New(cfg.WebClientConfig(), logger)
	if err != nil {
		return nil, err
	}

	f, err := fetch.New(wc, logger)
	if err != nil {
		wc.Close()
		return nil, err
	}

	extractors := []extract.Extractor{
		extract.NewJSONLDExtractor(logger),
		extract.NewHeuristicExtractor(logger),
	}
	if cfg.LLMEnabled() {
		client, err := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, logger, llm.WithModel(cfg.LLM.Model))
		if err != nil {
			wc.Close()
			return nil, fmt.Errorf("configure language-model tier: %w", err)
		}
		extractors = append(extractors, extract.NewLLMExtractor(client, logger))
	}
	orch := extract.NewOrchestrator(logger, extractors...)

	var st *store.Store
	if withStore {
		if err := cfg.EnsureStorageDir(); err != nil {
			wc.Close()
			return nil, err
		}
		st, err = store.Open(cfg.Storage.DatabasePath, logger)
		if err != nil {
			wc.Close()
			return nil, err
		}
	}

	imp, err := importer.New(f, orch, st, logger)
	if err != nil {
		wc.Close()
		if st != nil {
			st.Close()
		}
		return nil, err
	}
	return &pipeline{importer: imp, store: st, wc: wc}, nil
}

// ─── serve ─────────────────────────────────────────────────────────────

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "override the configured listen address"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if addr := c.String("listen"); addr != "" {
				cfg.Server.ListenAddr = addr
			}
			logger := newLogger(c, "ladle")

			p, err := buildPipeline(cfg, logger, true)
			if err != nil {
				return err
			}
			defer p.Close()

			srv, err := server.NewServer(server.Config{
				ListenAddr:    cfg.Server.ListenAddr,
				DefaultUserID: cfg.Server.DefaultUserID,
				Logger:        logger,
			}, p.importer, p.store)
			if err != nil {
				return err
			}
			defer srv.Close()

			httpSrv := srv.HTTPServer()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			fmt.Printf("ladle listening on %s\n", cfg.Server.ListenAddr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}

// ─── demo ──────────────────────────────────────────────────────────────

func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "import from the built-in fixture site and show the results",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := newLogger(c, "ladle-demo")

			site := httptest.NewServer(demosite.New(demosite.DefaultConfig()).Handler())
			defer site.Close()

			p, err := buildPipeline(cfg, logger, false)
			if err != nil {
				return err
			}
			defer p.Close()

			var rows [][]string
			for _, page := range demosite.AllPages() {
				res := p.importer.ImportFromURL(c.Context, site.URL+page.Path, cfg.Server.DefaultUserID, false, model.ExtractOptions{})
				name := ""
				if res.Recipe != nil {
					name = res.Recipe.Name
				}
				rows = append(rows, []string{
					page.Path,
					string(res.Status),
					res.Method,
					strconv.Itoa(res.Confidence),
					name,
				})
			}

			fmt.Println(renderTable(
				[]string{"Page", "Status", "Method", "Confidence", "Recipe"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

// ─── import ────────────────────────────────────────────────────────────

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "import a recipe and store it",
		Subcommands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "import a recipe from a URL",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "skip-fetch", Usage: "skip automatic fetching and go straight to manual import"},
					&cli.StringFlag{Name: "user", Usage: "user id to attribute the import to"},
				},
				Action: func(c *cli.Context) error {
					url := c.Args().First()
					if url == "" {
						return errors.New("usage: ladle import url <url>")
					}
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					logger := newLogger(c, "ladle")

					p, err := buildPipeline(cfg, logger, true)
					if err != nil {
						return err
					}
					defer p.Close()

					res := p.importer.ImportFromURL(c.Context, url, userID(c, cfg), c.Bool("skip-fetch"), model.ExtractOptions{})
					printResult(res)
					return nil
				},
			},
			{
				Name:  "text",
				Usage: "import a recipe from pasted text (file or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read recipe text from file instead of stdin"},
					&cli.StringFlag{Name: "source-url", Usage: "original URL the text came from, if any"},
					&cli.StringFlag{Name: "user", Usage: "user id to attribute the import to"},
				},
				Action: func(c *cli.Context) error {
					content, err := readContent(c.String("file"))
					if err != nil {
						return err
					}
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					logger := newLogger(c, "ladle")

					p, err := buildPipeline(cfg, logger, true)
					if err != nil {
						return err
					}
					defer p.Close()

					res := p.importer.ImportFromText(c.Context, content, c.String("source-url"), userID(c, cfg), model.ExtractOptions{})
					printResult(res)
					return nil
				},
			},
		},
	}
}

func userID(c *cli.Context, cfg *config.Config) string {
	if u := c.String("user"); u != "" {
		return u
	}
	return cfg.Server.DefaultUserID
}

func readContent(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printResult(res *model.ImportResult) {
	rows := [][]string{
		{"Status", string(res.Status)},
		{"Method", res.Method},
		{"Confidence", strconv.Itoa(res.Confidence)},
	}
	if res.Recipe != nil {
		r := res.Recipe
		rows = append(rows, []string{"Name", r.Name})
		if r.Servings != nil {
			rows = append(rows, []string{"Servings", strconv.Itoa(*r.Servings)})
		}
		if r.PreparationTime != nil {
			rows = append(rows, []string{"Prep time", fmt.Sprintf("%d min", *r.PreparationTime)})
		}
		if r.CookingTime != nil {
			rows = append(rows, []string{"Cook time", fmt.Sprintf("%d min", *r.CookingTime)})
		}
		rows = append(rows,
			[]string{"Ingredients", strconv.Itoa(len(r.Ingredients))},
			[]string{"Steps", strconv.Itoa(len(r.Instructions))},
		)
	}
	if res.RecipeID != "" {
		rows = append(rows, []string{"Saved as", res.RecipeID})
	}
	if len(res.MissingFields) > 0 {
		rows = append(rows, []string{"Missing", strings.Join(res.MissingFields, ", ")})
	}

	fmt.Println(renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))

	for _, w := range res.Warnings {
		fmt.Println("  warning:", w)
	}
}

// ─── recipes ───────────────────────────────────────────────────────────

func recipesCommand() *cli.Command {
	return &cli.Command{
		Name:  "recipes",
		Usage: "inspect stored recipes",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list stored recipes, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id to list recipes for"},
					&cli.IntFlag{Name: "limit", Value: 50, Usage: "maximum number of recipes"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					logger := newLogger(c, "ladle")

					if err := cfg.EnsureStorageDir(); err != nil {
						return err
					}
					st, err := store.Open(cfg.Storage.DatabasePath, logger)
					if err != nil {
						return err
					}
					defer st.Close()

					recipes, err := st.ListRecipes(c.Context, userID(c, cfg), c.Int("limit"))
					if err != nil {
						return err
					}

					var rows [][]string
					for _, sr := range recipes {
						servings := ""
						if sr.Recipe.Servings != nil {
							servings = strconv.Itoa(*sr.Recipe.Servings)
						}
						rows = append(rows, []string{
							sr.ID,
							sr.Recipe.Name,
							servings,
							strconv.Itoa(len(sr.Recipe.Instructions)),
							sr.CreatedAt.Format(time.RFC3339),
						})
					}
					fmt.Println(renderTable(
						[]string{"ID", "Name", "Servings", "Steps", "Imported"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					))
					return nil
				},
			},
		},
	}
}

// ─── config ────────────────────────────────────────────────────────────

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "configuration helpers",
		Subcommands: []*cli.Command{
			{
				Name:  "sample",
				Usage: "print an annotated sample config file",
				Action: func(c *cli.Context) error {
					fmt.Print(config.SampleConfig())
					return nil
				},
			},
		},
	}
}
