package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lostfound/catalog"
	"lostfound/config"
	"lostfound/database"
	"lostfound/finder"
	"lostfound/logging"
	"lostfound/matcher"
	"lostfound/scanner"
	"lostfound/signalhandler"
	"lostfound/types"
	"lostfound/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line arguments into a map
	args := utils.ParseArguments(os.Args[1:])

	command, hasCommand := args["command"]
	if !hasCommand || missingRequired(command, args) {
		utils.PrintUsage(os.Stderr)
		return 1
	}

	configPath := utils.GetDefaultConfigPath()
	if customConfig, ok := args["config"]; ok && customConfig != "" {
		configPath = customConfig
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if _, ok := args["debug"]; ok {
		cfg.App.Debug = true
	}
	if logPath, ok := args["logfile"]; ok && logPath != "" {
		cfg.App.LogFile = logPath
	}

	if err := logging.SetupLogger(logging.Options{
		Mode:    cfg.App.Mode,
		Debug:   cfg.App.Debug,
		LogFile: cfg.App.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to setup logging: %v\n", err)
	}
	defer logging.CloseLogger()

	ctx, cancel := signalhandler.SetupHandler(context.Background())
	defer cancel()

	app, err := openApp(cfg)
	if err != nil {
		logging.LogError("Startup failed: %v", err)
		return 1
	}
	defer app.db.Close()

	switch command {
	case "search":
		return handleSearchCommand(ctx, app, args)
	case "add":
		return handleAddCommand(ctx, app, args)
	case "scan":
		return handleScanCommand(ctx, app, args)
	case "stats":
		_, list := args["list"]
		return handleStatsCommand(ctx, app, list)
	case "remove":
		return handleRemoveCommand(ctx, app, args)
	case "user":
		return handleUserCommand(ctx, app, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		utils.PrintUsage(os.Stderr)
		return 1
	}
}

var requiredFlags = map[string][]string{
	"search": {"image", "category"},
	"add":    {"image", "category", "title", "description", "user"},
	"scan":   {"category", "user"},
	"user":   {"email"},
	"remove": {"category", "filename"},
}

func missingRequired(command string, args map[string]string) bool {
	for _, flag := range requiredFlags[command] {
		if args[flag] == "" {
			return true
		}
	}
	return false
}

type app struct {
	cfg     *config.Config
	db      *sql.DB
	items   *database.ItemStore
	store   catalog.Catalog
	service *finder.Service
}

func openApp(cfg *config.Config) (*app, error) {
	store, err := catalog.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog: %w", err)
	}

	db, err := database.InitDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %s: %w", cfg.Database.Path, err)
	}
	items := database.NewItemStore(db)

	ranker := matcher.NewRanker(matcher.Options{
		Threshold:     matcher.Float(cfg.Search.Threshold),
		Workers:       cfg.Search.Workers,
		MaxCandidates: cfg.Search.MaxCandidates,
	})

	service := finder.NewService(ranker, store, items)
	service.MaxUploadSize = cfg.Upload.MaxSize

	return &app{cfg: cfg, db: db, items: items, store: store, service: service}, nil
}

type searchResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Matches []types.EnrichedMatch `json:"matches,omitempty"`
}

func handleSearchCommand(ctx context.Context, a *app, args map[string]string) int {
	queryPath := args["image"]

	if thresholdStr, ok := args["threshold"]; ok {
		threshold, err := utils.ParseThreshold(thresholdStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		} else {
			a.service.Ranker.Threshold = threshold
		}
	}

	probe, err := os.ReadFile(queryPath)
	if err != nil {
		return writeResponse(searchResponse{Message: fmt.Sprintf("cannot read image: %v", err)}, 1)
	}

	if a.cfg.Search.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Search.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	result, err := a.service.Search(ctx, filepath.Base(queryPath), probe, args["category"])
	if err != nil {
		logging.DebugLog("Search failed: %v", err)
		return writeResponse(searchResponse{Message: err.Error()}, 1)
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d unreadable catalog images: %v\n", len(result.Skipped), result.Skipped)
	}
	logging.DebugLog("Search over %d %s images took %v", result.Considered, result.Category, time.Since(startTime))

	if len(result.Matches) == 0 {
		return writeResponse(searchResponse{Message: "No matches found"}, 0)
	}
	return writeResponse(searchResponse{Success: true, Matches: result.Matches}, 0)
}

func writeResponse(resp searchResponse, code int) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logging.LogError("Cannot write response: %v", err)
		return 1
	}
	return code
}

func handleAddCommand(ctx context.Context, a *app, args map[string]string) int {
	userID, err := utils.ParseID(args["user"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	imagePath := args["image"]
	data, err := os.ReadFile(imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read image: %v\n", err)
		return 1
	}

	item, err := a.service.AddItem(ctx, finder.NewItem{
		Title:       args["title"],
		Description: args["description"],
		Category:    args["category"],
		Filename:    filepath.Base(imagePath),
		UserID:      userID,
		Data:        data,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding item: %v\n", err)
		return 1
	}

	fmt.Printf("Added item %d: %s\n", item.ID, types.ImageURL(item.Category, item.Filename))
	return 0
}

func handleScanCommand(ctx context.Context, a *app, args map[string]string) int {
	category, err := types.ParseCategory(args["category"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ownerID, err := utils.ParseID(args["user"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	stats, err := scanner.ScanCategory(ctx, a.items, a.store, scanner.ScanOptions{
		Category:    category,
		OwnerID:     ownerID,
		Description: args["description"],
		DebugMode:   a.cfg.App.Debug,
		MaxWorkers:  a.cfg.Search.Workers,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Scan interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error scanning catalog: %v\n", err)
		}
		return 1
	}

	if stats.Errors > 0 {
		return 2
	}
	return 0
}

func handleStatsCommand(ctx context.Context, a *app, list bool) int {
	stats, err := a.items.GetCatalogStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		return 1
	}

	fmt.Printf("Database: %s\n", a.cfg.Database.Path)
	for _, category := range types.Categories() {
		fmt.Printf("- %-10s %d items\n", category, stats.PerCategory[category])
		if !list {
			continue
		}

		items, err := a.items.ListByCategory(ctx, category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing %s items: %v\n", category, err)
			return 1
		}
		for _, item := range items {
			fmt.Printf("    %d. %s (user %d) %s\n", item.ID, item.Title, item.UserID,
				types.ImageURL(item.Category, item.Filename))
		}
	}
	fmt.Printf("Total: %d items\n", stats.TotalItems)
	return 0
}

func handleRemoveCommand(ctx context.Context, a *app, args map[string]string) int {
	item, err := a.service.RemoveItem(ctx, args["category"], args["filename"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing item: %v\n", err)
		return 1
	}

	fmt.Printf("Removed item %d: %s\n", item.ID, item.Title)
	return 0
}

func handleUserCommand(ctx context.Context, a *app, args map[string]string) int {
	id, err := a.items.StoreUser(ctx, args["email"], args["name"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding user: %v\n", err)
		return 1
	}

	fmt.Printf("Added user %d\n", id)
	return 0
}
