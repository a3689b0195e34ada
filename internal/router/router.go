package router

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	_ "medication-adherence/docs"
	"medication-adherence/internal/adapters/auth/jwtverifier"
	"medication-adherence/internal/adapters/generation/gemini"
	"medication-adherence/internal/adapters/reference/openfda"
	mem "medication-adherence/internal/adapters/storage/memory"
	"medication-adherence/internal/adapters/storage/mongostore"
	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/config"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/explanations"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/schedule"
	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
)

type Options struct {
	Config *config.Config

	// Si es nil y hay JWT_SECRET, se arma uno HS256. Sin ninguno => modo dev.
	AuthVerifier auth.AuthVerifier

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
	// Opcional: si viene, el cache de explicaciones vive en Mongo.
	Mongo *mongo.Database

	Logger logger.Logger
	Clock  clock.Clock
}

// App expone el handler y los servicios con trabajo en background.
type App struct {
	Handler      http.Handler
	Explanations *explanations.Service
}

func NewRouter(opts Options) (http.Handler, error) {
	app, err := New(opts)
	if err != nil {
		return nil, err
	}
	return app.Handler, nil
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewForTesting()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	clk := opts.Clock
	if clk == nil {
		local, err := clock.NewLocalFromName(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("timezone: %w", err)
		}
		clk = local
	}
	verifier := opts.AuthVerifier
	if verifier == nil && strings.TrimSpace(cfg.JWTSecret) != "" {
		verifier = jwtverifier.NewVerifier(cfg.JWTSecret)
	}

	var (
		medRepo  medications.Repository
		doseRepo adherence.Repository
		explRepo explanations.Repository
	)

	if opts.DB != nil {
		medRepo = pg.NewMedicationsRepo(opts.DB)
		doseRepo = pg.NewDoseLogsRepo(opts.DB, cfg.DBDSN)
		explRepo = pg.NewExplanationsRepo(opts.DB)
	} else {
		medRepo = mem.NewMedicationRepo()
		doseRepo = mem.NewDoseLogRepo()
		explRepo = mem.NewExplanationRepo()
	}
	if opts.Mongo != nil {
		explRepo = mongostore.NewExplanationsRepo(opts.Mongo)
	}

	fda, err := openfda.NewClient(openfda.Config{
		BaseURL: cfg.OpenFDABaseURL,
		APIKey:  cfg.OpenFDAAPIKey,
		Timeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("openfda client: %w", err)
	}
	gen, err := gemini.NewClient(gemini.Config{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.HTTPClientTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if !gen.IsConfigured() {
		log.Warn("GEMINI_API_KEY not set; explanations will be unavailable", nil)
	}

	// Services por módulo
	explSvc := explanations.NewService(explRepo, fda, gen, log.With(map[string]any{"module": "explanations"}))
	medSvc := medications.NewService(medRepo).WithWarmer(explSvc)
	ledger := adherence.NewLedger(medRepo, doseRepo, clk, log.With(map[string]any{"module": "adherence"}))
	agg := adherence.NewAggregator(medRepo, doseRepo, clk)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(verifier, log.With(map[string]any{"module": "auth"})))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	schedule.RegisterRoutes(r)
	medications.RegisterRoutes(r, medSvc)
	adherence.RegisterRoutes(r, adherence.Handlers{
		Ledger:     ledger,
		Aggregator: agg,
		Repo:       doseRepo,
		Clock:      clk,
		Session: adherence.SessionOptions{
			Interval: cfg.DateCheckInterval,
			Logger:   log.With(map[string]any{"module": "session"}),
		},
	})
	explanations.RegisterRoutes(r, explSvc)

	return &App{Handler: r, Explanations: explSvc}, nil
}
