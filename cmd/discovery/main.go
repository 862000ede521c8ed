package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/catalog"
	"github.com/campusstay/discovery/internal/favorites"
	"github.com/campusstay/discovery/internal/identity"
	"github.com/campusstay/discovery/internal/metrics"
	"github.com/campusstay/discovery/internal/models"
	"github.com/campusstay/discovery/internal/notify"
	"github.com/campusstay/discovery/internal/session"
	"github.com/campusstay/discovery/internal/store"
	"github.com/campusstay/discovery/pkg/cache"
	"github.com/campusstay/discovery/pkg/config"
	"github.com/campusstay/discovery/pkg/database"
	"github.com/campusstay/discovery/pkg/export"
	"github.com/campusstay/discovery/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app, cleanup, err := newApp(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("startup failed", "error", err)
	}
	defer cleanup()

	if err := app.run(os.Args[1], os.Args[2:]); err != nil {
		app.notifications.Push(models.NotificationError, err.Error())
		for _, n := range app.notifications.List() {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Kind, n.Text)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: discovery <command> [flags]

commands:
  browse     fetch the catalog and print matching listings
  stats      print catalog statistics
  favorite   toggle a listing in the favorites set
  favorites  list favorited listing ids
  login      authenticate against the marketplace
  logout     clear the stored session
  whoami     print the reconciled session state
  export     write matching listings to a CSV or PDF file`)
}

type app struct {
	cfg           *config.Config
	sessions      *session.Cache
	favorites     *favorites.Store
	notifications *notify.Queue
	engine        *catalog.Engine
	catalogClient *catalog.Client
	identity      *identity.Client
}

func newApp(cfg *config.Config, logr *zap.Logger) (*app, func(), error) {
	m := metrics.New()

	adapter, closeAdapter, err := newAdapter(cfg, logr, m)
	if err != nil {
		return nil, nil, fmt.Errorf("init %s store: %w", cfg.Store.Backend, err)
	}

	sessions := session.New(adapter, session.Options{
		StalenessWindow: cfg.Session.StalenessWindow,
		Logger:          logr,
		Metrics:         m,
	})

	queue := notify.New(notify.Options{TTL: cfg.Notify.TTL, Logger: logr, Metrics: m})
	httpClient := &http.Client{Timeout: cfg.API.Timeout}

	a := &app{
		cfg:           cfg,
		sessions:      sessions,
		favorites:     favorites.New(adapter, logr),
		notifications: queue,
		engine:        catalog.NewEngine(logr, m),
		catalogClient: catalog.NewClient(cfg.API.BaseURL, httpClient, logr),
		identity:      identity.NewClient(cfg.API.BaseURL, httpClient, logr),
	}

	cleanup := func() {
		sessions.Close()
		queue.Close()
		closeAdapter()
	}
	return a, cleanup, nil
}

func newAdapter(cfg *config.Config, logr *zap.Logger, m *metrics.Metrics) (store.Adapter, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StoreFile:
		f, err := store.NewFile(cfg.Store.Path, logr, m)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	case config.StoreRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		r := store.NewRedis(client, logr, m)
		return r, func() { _ = r.Close(); _ = client.Close() }, nil
	case config.StorePostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		p := store.NewPostgres(db, logr, m)
		if err := p.EnsureSchema(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return p, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "browse":
		return a.browse(args)
	case "stats":
		return a.stats()
	case "favorite":
		return a.favorite(args)
	case "favorites":
		return a.listFavorites()
	case "login":
		return a.login(args)
	case "logout":
		return a.logout()
	case "whoami":
		return a.whoami()
	case "export":
		return a.export(args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseSpec(fs *flag.FlagSet, args []string) (models.FilterSpec, error) {
	spec := models.DefaultFilterSpec()

	search := fs.String("search", "", "free-text search over title and address")
	unitType := fs.String("type", "any", "unit type: any, shared or private")
	campuses := fs.String("campus", "", "comma-separated campus selection")
	min := fs.Int("min", 0, "minimum unit capacity (inclusive)")
	max := fs.Int("max", 0, "maximum unit capacity (inclusive)")
	all := fs.Bool("all", false, "include sold-out listings")
	if err := fs.Parse(args); err != nil {
		return spec, err
	}

	spec.SearchText = *search
	switch *unitType {
	case "any":
		spec.PropertyType = models.PropertyTypeAny
	case "shared":
		spec.PropertyType = models.PropertyTypeShared
	case "private":
		spec.PropertyType = models.PropertyTypePrivate
	default:
		return spec, fmt.Errorf("unknown unit type %q", *unitType)
	}
	if *campuses != "" {
		for _, c := range strings.Split(*campuses, ",") {
			if trimmed := strings.TrimSpace(c); trimmed != "" {
				spec.CampusSelection = append(spec.CampusSelection, trimmed)
			}
		}
	}
	if *min > 0 {
		spec.MinCapacity = min
	}
	if *max > 0 {
		spec.MaxCapacity = max
	}
	spec.AvailableOnly = !*all
	return spec, nil
}

func (a *app) fetchFiltered(spec models.FilterSpec) ([]models.Property, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
	defer cancel()

	snapshot, err := a.catalogClient.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	return a.engine.Apply(snapshot, spec), nil
}

func (a *app) browse(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	spec, err := parseSpec(fs, args)
	if err != nil {
		return err
	}
	matched, err := a.fetchFiltered(spec)
	if err != nil {
		return err
	}

	if len(matched) == 0 {
		fmt.Println("no listings match the current filters")
		return nil
	}
	for _, p := range matched {
		marker := " "
		if a.favorites.Contains(p.ID) {
			marker = "*"
		}
		fmt.Printf("%s %4d  %-40s %-12s %d/%d units  capacity %d  %s\n",
			marker, p.ID, p.Title, unitTypeLabel(p), p.AvailableUnits, p.TotalUnits,
			p.UnitCapacity, strings.Join(p.CampusIntake, ", "))
	}
	return nil
}

func (a *app) stats() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
	defer cancel()

	snapshot, err := a.catalogClient.ListProperties(ctx)
	if err != nil {
		return err
	}
	s := catalog.Summarize(snapshot)
	fmt.Printf("listings: %d (%d with availability)\n", s.Total, s.Available)
	fmt.Printf("shared: %d  private: %d\n", s.SharedUnits, s.PrivateUnits)
	fmt.Printf("capacity: %d students across all units, %d units open\n", s.TotalCapacity, s.AvailableUnits)
	return nil
}

func (a *app) favorite(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: discovery favorite <listing-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid listing id %q", args[0])
	}

	current := a.favorites.Toggle(id)
	if a.favorites.Contains(id) {
		a.notifications.Push(models.NotificationSuccess, fmt.Sprintf("listing %d added to favorites", id))
	} else {
		a.notifications.Push(models.NotificationInfo, fmt.Sprintf("listing %d removed from favorites", id))
	}
	fmt.Printf("favorites: %v\n", current)
	return nil
}

func (a *app) listFavorites() error {
	ids := a.favorites.List()
	if len(ids) == 0 {
		fmt.Println("no favorites yet")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func (a *app) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
	defer cancel()

	ident, token, err := a.identity.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	a.sessions.SetAuthenticated(ident, token)
	a.notifications.Push(models.NotificationSuccess, fmt.Sprintf("signed in as %s (%s)", ident.Email, ident.Role))
	fmt.Printf("signed in as %s (%s)\n", ident.Email, ident.Role)
	return nil
}

func (a *app) logout() error {
	a.sessions.Clear()
	fmt.Println("signed out")
	return nil
}

func (a *app) whoami() error {
	state := a.sessions.Load()
	if !state.Authenticated() {
		fmt.Println("not signed in")
		return nil
	}
	fmt.Printf("%s (%s)\n", state.Identity.Email, state.Identity.Role)
	return nil
}

func (a *app) export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "csv", "export format: csv or pdf")
	out := fs.String("out", "", "output file (defaults under the export dir)")

	spec, err := parseSpec(fs, args)
	if err != nil {
		return err
	}

	matched, err := a.fetchFiltered(spec)
	if err != nil {
		return err
	}

	var payload []byte
	switch *format {
	case "csv":
		payload, err = export.NewCSVExporter().Render(matched)
	case "pdf":
		payload, err = export.NewPDFExporter().Render(matched, "CampusStay listings")
	default:
		return fmt.Errorf("unknown export format %q", *format)
	}
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		if err := os.MkdirAll(a.cfg.Export.Dir, 0o755); err != nil {
			return err
		}
		path = filepath.Join(a.cfg.Export.Dir, "listings."+*format)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return err
	}

	a.notifications.Push(models.NotificationSuccess, fmt.Sprintf("exported %d listings to %s", len(matched), path))
	fmt.Printf("exported %d listings to %s\n", len(matched), path)
	return nil
}

func unitTypeLabel(p models.Property) string {
	if p.IsSharedUnit {
		return "commune"
	}
	return "bachelor"
}
