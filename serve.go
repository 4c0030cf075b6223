package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/maze-swarm/api"
	api_i "github.com/beka-birhanu/maze-swarm/api/i"
	"github.com/beka-birhanu/maze-swarm/api/identity"
	simulationapi "github.com/beka-birhanu/maze-swarm/api/simulation"
	"github.com/beka-birhanu/maze-swarm/config"
	"github.com/beka-birhanu/maze-swarm/domain"
	logger "github.com/beka-birhanu/maze-swarm/infrastruture/log"
	"github.com/beka-birhanu/maze-swarm/infrastruture/mazecache"
	"github.com/beka-birhanu/maze-swarm/infrastruture/repo"
	"github.com/beka-birhanu/maze-swarm/infrastruture/sortedstorage"
	"github.com/beka-birhanu/maze-swarm/infrastruture/token"
	"github.com/beka-birhanu/maze-swarm/service"
	"github.com/beka-birhanu/maze-swarm/service/i"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectTimeout = 30 * time.Second
	queuePrefix    = "maze-swarm"
)

// Global variables for dependencies
var (
	mongoClient          *mongo.Client
	redisClient          *redis.Client
	operatorRepo         *repo.OperatorRepo
	runRepo              *repo.RunRepo
	mazeSource           i.MazeSource
	simulationManager    *service.SimulationManager
	runQueue             *service.RunQueue
	runQuota             *service.RunQuota
	jwtTokenizer         i.Tokenizer
	authService          i.Authenticator
	authController       api_i.Controller
	simulationController api_i.Controller
	router               *api.Router
	appLogger            i.Logger
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API backed by MongoDB (operators, run reports) and Redis
(run queue, maze cache).

Configuration is read from the environment or a .env file. DB_HOST, DB_PORT,
DB_USER, DB_PASS, JWT_SECRET and JWT_ISSUER are required.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func initMongo(ctx context.Context) {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")
}

func initRepos(ctx context.Context) {
	operatorRepo = repo.NewOperatorRepo(mongoClient, config.Envs.DBName, "operators")
	if err := operatorRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Error(fmt.Sprintf("Creating operator indexes: %v", err))
		os.Exit(1)
	}

	runRepo = repo.NewRunRepo(mongoClient, config.Envs.DBName, "runs")
	if err := runRepo.EnsureIndexes(ctx); err != nil {
		appLogger.Error(fmt.Sprintf("Creating run indexes: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Repositories initialized")
}

func initRedis(ctx context.Context) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     config.Envs.RedisAddr,
		Password: config.Envs.RedisPassword,
		DB:       config.Envs.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")
}

func initMazeSource() {
	mazeLogger, err := logger.New("MAZE", config.ColorBlue, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating maze logger: %v", err))
		os.Exit(1)
	}

	mazeSource, err = mazecache.New(mazecache.Config{
		Client:     redisClient,
		Source:     service.NewGeneratorSource(mazeLogger),
		Logger:     mazeLogger,
		Prefix:     queuePrefix,
		TTLSeconds: config.Envs.MazeCacheTTL,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating maze cache: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Maze cache initialized")
}

func initSimulationManager(ctx context.Context) {
	simLogger, err := logger.New("SIMULATION", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating simulation logger: %v", err))
		os.Exit(1)
	}

	simulationManager, err = service.NewSimulationManager(&service.ManagerConfig{
		Source:  mazeSource,
		Repo:    runRepo,
		Logger:  simLogger,
		MaxRuns: config.Envs.MaxConcurrentRuns,
		OnRunEnded: func(*domain.RunReport) {
			// A slot just freed up.
			go runQueue.Dispatch(ctx)
		},
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating simulation manager: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Simulation manager initialized")
}

func initRunQueue() {
	queueLogger, err := logger.New("RUN-QUEUE", config.ColorPurple, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run queue logger: %v", err))
		os.Exit(1)
	}

	sortedQueue, err := sortedstorage.NewRedisSortedQueue(redisClient, config.Envs.QueueTTLSeconds)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating sorted queue: %v", err))
		os.Exit(1)
	}

	runQueue, err = service.NewRunQueue(sortedQueue, queueLogger, &service.QueueOptions{
		Prefix:  queuePrefix,
		Handler: simulationManager.Start,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run queue: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Run queue initialized")
}

func initRunQuota() {
	var err error
	runQuota, err = service.NewRunQuota(operatorRepo, runRepo)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating run quota: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Run quota initialized")
}

func initJWTTokenizer() {
	jwtTokenizer = token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
	appLogger.Info("JWT Tokenizer initialized")
}

func initAuthService() {
	var err error
	authService, err = service.NewAuthService(operatorRepo, jwtTokenizer)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating auth service: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Auth service initialized")
}

func initControllers() {
	authController = identity.NewIdentityServer(authService)

	var err error
	simulationController, err = simulationapi.NewSimulationController(mazeSource, runQueue, simulationManager, runQuota)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating simulation controller: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Controllers initialized")
}

func initRouter(t i.Tokenizer) {
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{authController, simulationController},
		AuthorizationMiddleware: identity.Authorize(t),
	})
	appLogger.Info("Router initialized")
}

func runServe(cmd *cobra.Command, args []string) {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)
	config.MustLoadServer()
	gin.SetMode(config.Envs.GinMode)

	ctx := cmd.Context()
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	initMongo(connectCtx)
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	initRepos(connectCtx)

	initRedis(connectCtx)
	defer redisClient.Close()

	initMazeSource()
	initSimulationManager(ctx)
	initRunQueue()
	initRunQuota()
	initJWTTokenizer()
	initAuthService()
	initControllers()
	initRouter(jwtTokenizer)

	// Pick up runs left queued by a previous instance.
	go runQueue.Dispatch(ctx)

	if err := router.Run(ctx); err != nil {
		appLogger.Error(fmt.Sprintf("Starting server: %v", err))
		simulationManager.StopAll()
		os.Exit(1)
	}

	appLogger.Info("Shutting down, cancelling live runs")
	simulationManager.StopAll()
}
