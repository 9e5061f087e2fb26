package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"natours/src/boot"
	"natours/src/common"
	"natours/src/config"
	"natours/src/controllers"
	"natours/src/db"
	"natours/src/lib"
	"natours/src/lib/mailer"
	"natours/src/middlewares"
	"natours/src/services"
	"natours/src/types"
	"natours/src/views"
)

const (
	apiPrefix       string = "/api/v1"
	shutdownTimeout        = 10 * time.Second
)

var ErrMaintenance = types.NewAppError("The server is under maintenance", http.StatusServiceUnavailable)

// application holds the services and controllers the route files register.
type application struct {
	cfg      *config.Config
	auth     *services.AuthService
	bookings *services.BookingService
	gateway  *lib.StripeGateway
	limiter  middlewares.Limiter

	tourCtl    *controllers.TourController
	userCtl    *controllers.UserController
	reviewCtl  *controllers.ReviewController
	bookingCtl *controllers.BookingController
	viewCtl    *controllers.ViewController
}

func newApplication(cfg *config.Config, gdb *gorm.DB, mail services.Mailer, images services.ImageStore, limiter middlewares.Limiter) *application {
	tours := db.NewTourStore(gdb)
	users := db.NewUserStore(gdb)
	reviews := db.NewReviewStore(gdb)
	bookings := db.NewBookingStore(gdb)
	gateway := lib.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookKey)

	authSvc := services.NewAuthService(users, mail, services.AuthConfig{
		Secret:         cfg.JWTSecret,
		ExpiresIn:      cfg.JWTExpiresIn,
		ResetExpiresIn: cfg.PasswordResetExpires,
		BcryptCost:     cfg.PasswordSaltRounds,
	})
	tourSvc := services.NewTourService(tours, users)
	bookingSvc := services.NewBookingService(tours, bookings, gateway, cfg.BookingPendingTTL)
	imageSvc := services.NewImageService(images)

	return &application{
		cfg:        cfg,
		auth:       authSvc,
		bookings:   bookingSvc,
		gateway:    gateway,
		limiter:    limiter,
		tourCtl:    controllers.NewTourController(tours, tourSvc, imageSvc),
		userCtl:    controllers.NewUserController(users, authSvc, imageSvc, cfg.JWTExpiresIn),
		reviewCtl:  controllers.NewReviewController(reviews, tours, services.NewRatingService(reviews, tours)),
		bookingCtl: controllers.NewBookingController(bookings, bookingSvc),
		viewCtl:    controllers.NewViewController(tours, tourSvc, bookingSvc),
	}
}

func setupRouter(app *application) (*gin.Engine, error) {
	pages, err := views.Load()
	if err != nil {
		return nil, err
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.SetHTMLTemplate(pages)
	router.Use(
		middlewares.ErrorHandler(app.cfg.IsProd()),
		middlewares.RequestID,
		middlewares.SecureHeaders(app.cfg.IsProd()),
		corsMiddleware(app.cfg),
	)
	router = maintenanceModeMiddleware(router)
	router.Use(
		apiOnly(middlewares.RateLimit(app.limiter)),
		middlewares.BodyLimit(config.MaxJSONBodyBytes, config.MaxUploadBodySize, apiPrefix+"/webhook/stripe"),
		middlewares.ParameterPollution(middlewares.PollutionWhitelist...),
	)

	public := app.cfg.PublicDir
	router.Static("/img", filepath.Join(public, "img"))
	router.Static("/css", filepath.Join(public, "css"))
	router.Static("/js", filepath.Join(public, "js"))

	stripeWebhookRoute(router, app)
	apiv1 := apiv1Group(router)
	apiv1 = tourHandlers(apiv1, app)
	apiv1 = userHandlers(apiv1, app)
	apiv1 = reviewHandlers(apiv1, app)
	bookingHandlers(apiv1, app)
	viewHandlers(&router.RouterGroup, app)
	router.NoRoute(middlewares.NoRoute)
	return router, nil
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if on, _ := strconv.ParseBool(os.Getenv("MAINTENANCE_MODE")); on {
			log.Println(ErrMaintenance.Message)
			middlewares.Fail(ctx, ErrMaintenance)
			return
		}
		ctx.Next()
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// apiOnly runs h for API requests only.
func apiOnly(h gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, apiPrefix) {
			h(ctx)
			return
		}
		ctx.Next()
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.IsProd() || cfg.AppHost == "" {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "PATCH")
	cc.AllowOrigins = []string{cfg.AppHost}
	cc.AllowCredentials = true
	return cors.New(cc)
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	if err := os.MkdirAll(path.Dir(serverLogs), 0o755); err != nil {
		log.Printf("Could not create logs directory: %s\n", err.Error())
		return
	}

	f, err := os.OpenFile(apiLogs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}))
}

func main() {
	importDir := flag.String("import", "", "load tours.json, users.json and reviews.json from `dir`, then exit")
	deleteData := flag.Bool("delete", false, "delete every tour, user, review and booking, then exit")
	flag.Parse()

	cwd, _ := os.Getwd()
	if err := godotenv.Load(path.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env: %s", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	initLogger()

	gdb, err := boot.InitDb(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer db.Close()

	switch {
	case *importDir != "":
		if err := common.ImportDevData(gdb, cfg.Env, *importDir); err != nil {
			log.Fatalf("Import failed: %s", err)
		}
		return
	case *deleteData:
		if err := common.DeleteDevData(gdb, cfg.Env); err != nil {
			log.Fatalf("Delete failed: %s", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := boot.InitMailTransport(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize mail transport: %s", err)
	}
	mail, err := mailer.New(transport, cfg.EmailFrom, cfg.PasswordResetExpires)
	if err != nil {
		log.Fatalf("Failed to load email templates: %s", err)
	}
	images, err := boot.InitImageStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize image store: %s", err)
	}
	limiter, err := boot.InitRateLimiter(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize rate limiter: %s", err)
	}

	app := newApplication(cfg, gdb, mail, images, limiter)
	if err := boot.InitScheduler(app.bookings); err != nil {
		log.Printf("Pending bookings will not expire: %s\n", err.Error())
	}
	defer boot.StopScheduler()

	router, err := setupRouter(app)
	if err != nil {
		log.Fatalf("Failed to parse page templates: %s", err)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("App running on port %s...\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %s", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %s\n", err.Error())
	}
}
