package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"inkwell/internal/config"
	"inkwell/internal/document"
	"inkwell/internal/embedding"
	"inkwell/internal/helper"
	"inkwell/internal/importer"
	"inkwell/internal/llm"
	"inkwell/internal/memory"
	"inkwell/internal/models"
	"inkwell/internal/novel"
	"inkwell/internal/rag"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	userID := flag.String("user", "local", "User id scoping novels")
	novelID := flag.String("novel", "", "Novel id")
	chapterID := flag.String("chapter", "", "Chapter id")

	newNovel := flag.String("new-novel", "", "Create a novel with the given title")
	listNovels := flag.Bool("novels", false, "List novels")
	newChapter := flag.String("new-chapter", "", "Create a chapter with the given title")
	listChapters := flag.Bool("chapters", false, "List chapters of the novel")
	importFile := flag.String("import", "", "Import a manuscript file as a new chapter")
	importSettings := flag.String("import-settings", "", "Bulk-import setting entries from an .xlsx file")
	addSetting := flag.String("add-setting", "", "Add a setting entry as kind:name:description[:section]")
	listSettings := flag.String("settings", "", "List setting entries of the given kind")
	syncChapter := flag.Bool("sync", false, "Sync the chapter's text into memory")
	continueStory := flag.Bool("continue", false, "Stream an AI continuation into the chapter")
	instruction := flag.String("instruction", "", "Optional instruction for the continuation")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Debug().Err(err).Msg("Config file not loaded, using defaults")
		cfg = config.Default()
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	app, err := buildApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring application")
	}
	defer app.close()

	ctx := context.Background()

	switch {
	case *newNovel != "":
		n, err := app.novels.CreateNovel(ctx, *userID, *newNovel)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating novel")
		}
		fmt.Printf("created novel %s: %s\n", n.ID, n.Title)

	case *listNovels:
		list, err := app.novels.ListNovels(ctx, *userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error listing novels")
		}
		for _, n := range list {
			fmt.Printf("%s  %s  (%s)\n", n.ID, n.Title, n.CreatedAt.Format("2006-01-02"))
		}

	case *newChapter != "":
		requireNovel(*novelID)
		ch, err := app.novels.CreateChapter(ctx, *novelID, *newChapter)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating chapter")
		}
		fmt.Printf("created chapter %s: %s\n", ch.ID, ch.Title)

	case *listChapters:
		requireNovel(*novelID)
		list, err := app.novels.ListChapters(ctx, *novelID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error listing chapters")
		}
		for _, ch := range list {
			fmt.Printf("%s  %s  (%d words, %s)\n", ch.ID, ch.Title, ch.WordCount, ch.UpdatedAt.Format(time.RFC3339))
		}

	case *importFile != "":
		requireNovel(*novelID)
		app.importManuscript(ctx, *novelID, *importFile)

	case *importSettings != "":
		requireNovel(*novelID)
		app.importSettings(ctx, *novelID, *importSettings)

	case *addSetting != "":
		requireNovel(*novelID)
		app.addSetting(ctx, *novelID, *addSetting)

	case *listSettings != "":
		requireNovel(*novelID)
		app.listSettings(ctx, *novelID, *listSettings)

	case *syncChapter:
		requireNovel(*novelID)
		requireChapter(*chapterID)
		ch, err := app.novels.GetChapter(ctx, *chapterID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading chapter")
		}
		n, err := app.rag.SyncChapter(ctx, *novelID, *chapterID, ch.PlainText)
		if err != nil {
			log.Fatal().Err(err).Msg("Error syncing chapter")
		}
		fmt.Printf("synced %d fragments\n", n)

	case *continueStory:
		requireNovel(*novelID)
		requireChapter(*chapterID)
		app.continueChapter(ctx, *novelID, *chapterID, *instruction)

	default:
		flag.Usage()
	}
}

func requireNovel(id string) {
	if id == "" {
		log.Fatal().Msg("Please provide a novel id with the -novel flag")
	}
}

func requireChapter(id string) {
	if id == "" {
		log.Fatal().Msg("Please provide a chapter id with the -chapter flag")
	}
}

// app bundles the wired backends. Real backends are selected when the hosted
// database is configured, the session-scoped fallbacks otherwise.
type app struct {
	cfg    *config.Config
	novels novel.Store
	frags  memory.Store
	rag    *rag.Orchestrator

	closers []func() error
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.HasDatabase() {
		sqldb := memory.ConnectDB(cfg.Database.URL, cfg.Database.Key)
		frags := memory.NewPostgres(sqldb, cfg.Database.Debug)
		if err := frags.Init(context.Background()); err != nil {
			return nil, err
		}
		novels := novel.NewPostgres(sqldb, cfg.Database.Debug)
		if err := novels.Init(context.Background()); err != nil {
			return nil, err
		}
		a.frags = frags
		a.novels = novels
		a.closers = append(a.closers, frags.Close)
		log.Info().Msg("Using hosted Postgres backend")
	} else {
		frags, err := memory.NewChromem(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		a.frags = frags
		a.novels = novel.NewMemory()
		log.Warn().Str("data_dir", cfg.DataDir).Msg("No database configured, using local vector store; novels are session-scoped")
	}

	var streamer llm.Streamer
	if cfg.HasAI() {
		streamer = llm.NewZhipu(cfg.AI)
	} else {
		streamer = llm.NewMock()
		log.Warn().Msg("No AI credential configured, using mock streamer")
	}
	log.Info().Str("streamer", llm.Describe(streamer)).Msg("Completion streamer ready")

	provider := embedding.NewProvider(&cfg.Embedding)
	a.rag = rag.NewOrchestrator(provider, a.frags, &teeStreamer{inner: streamer}, &cfg.RAG)
	return a, nil
}

func (a *app) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("Error closing backend")
		}
	}
}

func (a *app) importManuscript(ctx context.Context, novelID, path string) {
	paragraphs, err := importer.ImportManuscript(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error importing manuscript")
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	ch, err := a.novels.CreateChapter(ctx, novelID, title)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating chapter")
	}
	doc := document.New()
	doc.ApplyIncrement(strings.Join(paragraphs, "\n"))
	a.persistChapter(ctx, ch, doc)
	fmt.Printf("imported %d paragraphs into chapter %s\n", len(paragraphs), ch.ID)
}

func (a *app) importSettings(ctx context.Context, novelID, path string) {
	entries, err := importer.ImportSettings(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error importing settings")
	}
	for _, e := range entries {
		if _, err := a.rag.SaveSetting(ctx, novelID, e.Kind, e.Name, e.Description, e.Section); err != nil {
			log.Fatal().Err(err).Msg("Error saving setting entry")
		}
	}
	fmt.Printf("imported %d setting entries\n", len(entries))
}

func (a *app) addSetting(ctx context.Context, novelID, arg string) {
	parts := strings.SplitN(arg, ":", 4)
	if len(parts) < 3 {
		log.Fatal().Msg("Setting must be kind:name:description[:section]")
	}
	section := ""
	if len(parts) == 4 {
		section = parts[3]
	}
	f, err := a.rag.SaveSetting(ctx, novelID, models.FragmentKind(parts[0]), parts[1], parts[2], section)
	if err != nil {
		log.Fatal().Err(err).Msg("Error saving setting")
	}
	fmt.Printf("saved %s\n", f.ID)
}

func (a *app) listSettings(ctx context.Context, novelID, kind string) {
	frags, err := a.frags.ListByKind(ctx, novelID, models.FragmentKind(kind))
	if err != nil {
		log.Fatal().Err(err).Msg("Error listing settings")
	}
	helper.PrettyPrint(frags)
}

func (a *app) continueChapter(ctx context.Context, novelID, chapterID, instruction string) {
	ch, err := a.novels.GetChapter(ctx, chapterID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading chapter")
	}
	doc, err := document.FromJSON(ch.Content)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing chapter content")
	}

	saver := document.NewDebouncer(time.Duration(a.cfg.Autosave.DebounceMs)*time.Millisecond, func() {
		a.persistChapter(ctx, ch, doc)
	})
	defer saver.Stop()
	doc.OnChange(func(root *document.Node, plain string) {
		saver.Notify()
	})

	// Ctrl-C aborts the stream; text already applied stays in the chapter.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	err = a.rag.Continue(ctx, doc, novelID, instruction)
	fmt.Println()
	saver.Flush()
	if err != nil {
		log.Error().Err(err).Msg("Continuation stopped early")
		return
	}
	log.Info().Int("words", doc.WordCount()).Msg("Continuation complete")
}

func (a *app) persistChapter(ctx context.Context, ch *models.Chapter, doc *document.Document) {
	content, err := doc.MarshalJSON()
	if err != nil {
		log.Error().Err(err).Msg("Error serializing chapter")
		return
	}
	ch.Content = content
	ch.PlainText = doc.PlainText()
	ch.WordCount = doc.WordCount()
	if err := a.novels.SaveChapter(ctx, ch); err != nil {
		log.Error().Err(err).Msg("Error saving chapter")
	}
}

// teeStreamer echoes each delta to stdout as it is applied to the document.
type teeStreamer struct {
	inner llm.Streamer
}

func (t *teeStreamer) Stream(ctx context.Context, prompt string, onDelta func(string)) error {
	return t.inner.Stream(ctx, prompt, func(s string) {
		fmt.Print(s)
		onDelta(s)
	})
}
