package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inventory-platform/ledger-service/pkg/api"
	"github.com/inventory-platform/ledger-service/pkg/errors"
	"github.com/inventory-platform/ledger-service/pkg/kafka"
	"github.com/inventory-platform/ledger-service/pkg/logging"
	"github.com/inventory-platform/ledger-service/pkg/metrics"
	"github.com/inventory-platform/ledger-service/pkg/middleware"
	"github.com/inventory-platform/ledger-service/pkg/mongodb"
	"github.com/inventory-platform/ledger-service/pkg/outbox"
	outboxMongo "github.com/inventory-platform/ledger-service/pkg/outbox/mongodb"

	"github.com/inventory-platform/ledger-service/internal/application"
	"github.com/inventory-platform/ledger-service/internal/domain"
	mongoRepo "github.com/inventory-platform/ledger-service/internal/infrastructure/mongodb"
)

const serviceName = "ledger-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting ledger-service API")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	db := mongoClient.Database()
	productRepo := mongoRepo.NewProductRepository(db)
	batchRepo := mongoRepo.NewBatchRepository(db)
	logRepo := mongoRepo.NewOperationLogRepository(db)
	operatorRepo := mongoRepo.NewOperatorRepository(db)
	outboxRepo := outboxMongo.NewRepository(db)
	transactor := mongoRepo.NewTransactor(mongoClient)

	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		kafkaProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	ledgerService := application.NewLedgerService(productRepo, batchRepo, logRepo, outboxRepo, transactor, logger)
	queryService := application.NewQueryService(productRepo, batchRepo, logRepo, operatorRepo, logger)

	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	business := middleware.NewBusinessMetrics(m)

	apiGroup := router.Group("/api/v1")
	apiGroup.Use(middleware.OperatorAuth())
	{
		products := apiGroup.Group("/products")
		{
			products.POST("", middleware.RequireRole(domain.RoleManager), createProductHandler(ledgerService, logger))
			products.GET("", listProductsHandler(queryService, logger))
			products.GET("/:id", getProductHandler(queryService, logger))
			products.GET("/:id/totals", productTotalsHandler(queryService, logger))
			products.GET("/:id/batches", listBatchesHandler(queryService, logger))
		}

		batches := apiGroup.Group("/batches")
		{
			batches.POST("", middleware.RequireRole(domain.RoleOperator), createBatchHandler(ledgerService, business, logger))
			batches.GET("/:id", getBatchHandler(queryService, logger))
			batches.POST("/:id/execute", middleware.RequireRole(domain.RoleOperator), executeHandler(ledgerService, business, logger))
		}

		logs := apiGroup.Group("/logs")
		{
			logs.GET("", recentActivityHandler(queryService, logger))
			logs.GET("/:id", getLogEntryHandler(queryService, logger))
			logs.POST("/:id/revoke", middleware.RequireRole(domain.RoleManager), revokeHandler(ledgerService, business, logger))
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8010"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "ledger"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// respondDomainError maps ledger domain sentinels onto HTTP error responses.
func respondDomainError(responder *middleware.ErrorResponder, err error) {
	switch {
	case stderrors.Is(err, domain.ErrProductNotFound):
		responder.RespondWithAppError(errors.ErrNotFound("product"))
	case stderrors.Is(err, domain.ErrBatchNotFound):
		responder.RespondWithAppError(errors.ErrNotFound("batch"))
	case stderrors.Is(err, domain.ErrLogEntryNotFound):
		responder.RespondWithAppError(errors.ErrNotFound("operation log entry"))
	case stderrors.Is(err, domain.ErrOperatorNotFound):
		responder.RespondWithAppError(errors.ErrNotFound("operator"))
	case stderrors.Is(err, domain.ErrSKUExists),
		stderrors.Is(err, domain.ErrAlreadyRevoked),
		stderrors.Is(err, domain.ErrTransactionConflict),
		stderrors.Is(err, domain.ErrBatchDeleted),
		stderrors.Is(err, domain.ErrNegativeStock):
		responder.RespondWithAppError(errors.ErrConflict(err.Error()))
	case stderrors.Is(err, domain.ErrInvalidRate),
		stderrors.Is(err, domain.ErrInvalidActionType),
		stderrors.Is(err, domain.ErrZeroDelta),
		stderrors.Is(err, domain.ErrDeltaSignMismatch),
		stderrors.Is(err, domain.ErrInvalidRoleLevel):
		responder.RespondWithAppError(errors.ErrValidation(err.Error()))
	default:
		if appErr, ok := errors.AsAppError(err); ok {
			responder.RespondWithAppError(appErr)
			return
		}
		responder.RespondInternalError(err)
	}
}

type deltaRequest struct {
	QuantityLarge int `json:"quantity_large"`
	QuantitySmall int `json:"quantity_small"`
}

func createProductHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name           string `json:"name" binding:"required"`
			SKU            string `json:"sku" binding:"required"`
			Category       string `json:"category"`
			UnitLarge      string `json:"unit_large" binding:"required"`
			UnitSmall      string `json:"unit_small" binding:"required"`
			ConversionRate int    `json:"conversion_rate" binding:"required"`
			ImageURL       string `json:"image_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.CreateProductCommand{
			Name:           req.Name,
			SKU:            req.SKU,
			Category:       req.Category,
			UnitLarge:      req.UnitLarge,
			UnitSmall:      req.UnitSmall,
			ConversionRate: req.ConversionRate,
			ImageURL:       req.ImageURL,
		}

		product, err := service.CreateProduct(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, product)
	}
}

func listProductsHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := api.ParsePagination(c)
		query := application.ListProductsQuery{
			Limit:  int(page.GetLimit()),
			Offset: int(page.GetOffset()),
		}

		products, err := service.ListProducts(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"count":    len(products),
		})
	}
}

func getProductHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetProductQuery{ProductID: c.Param("id")}

		product, err := service.GetProduct(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

func productTotalsHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ProductTotalsQuery{ProductID: c.Param("id")}

		totals, err := service.ProductTotals(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, totals)
	}
}

func listBatchesHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ListBatchesQuery{
			ProductID:      c.Param("id"),
			IncludeDeleted: c.Query("include_deleted") == "true",
		}

		batches, err := service.ListBatches(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"batches": batches,
			"count":   len(batches),
		})
	}
}

func createBatchHandler(service *application.LedgerService, business *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ProductID       string       `json:"product_id" binding:"required"`
			StoreID         string       `json:"store_id" binding:"required"`
			BatchNumber     string       `json:"batch_number" binding:"required"`
			ExpiryDate      time.Time    `json:"expiry_date" binding:"required"`
			InitialQuantity deltaRequest `json:"initial_quantity"`
			Remark          string       `json:"remark"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.CreateBatchCommand{
			ProductID:   req.ProductID,
			StoreID:     req.StoreID,
			BatchNumber: req.BatchNumber,
			ExpiryDate:  req.ExpiryDate,
			InitialQuantity: domain.Quantity{
				Large: req.InitialQuantity.QuantityLarge,
				Small: req.InitialQuantity.QuantitySmall,
			},
			Remark:     req.Remark,
			OperatorID: middleware.GetOperatorID(c),
		}

		result, err := service.CreateBatch(c.Request.Context(), cmd)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		business.RecordBatchCreated()
		c.JSON(http.StatusCreated, result)
	}
}

func getBatchHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batch, err := service.GetBatch(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, batch)
	}
}

func executeHandler(service *application.LedgerService, business *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			ActionType string       `json:"action_type" binding:"required"`
			Delta      deltaRequest `json:"delta"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		actionType, err := domain.ParseActionType(req.ActionType)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		cmd := application.ExecuteCommand{
			ActionType: actionType,
			TargetID:   c.Param("id"),
			Delta: domain.Quantity{
				Large: req.Delta.QuantityLarge,
				Small: req.Delta.QuantitySmall,
			},
			OperatorID: middleware.GetOperatorID(c),
		}

		result, err := service.Execute(c.Request.Context(), cmd)
		if err != nil {
			if stderrors.Is(err, domain.ErrTransactionConflict) {
				business.RecordOperationConflict(actionType.String())
			}
			business.RecordOperationExecuted(actionType.String(), false)
			respondDomainError(responder, err)
			return
		}

		business.RecordOperationExecuted(actionType.String(), true)
		if actionType == domain.ActionDelete {
			business.RecordBatchTombstoned()
		}
		c.JSON(http.StatusOK, result)
	}
}

func revokeHandler(service *application.LedgerService, business *middleware.BusinessMetrics, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		logID, err := domain.ParseLogID(c.Param("id"))
		if err != nil {
			responder.RespondBadRequest("invalid log entry ID")
			return
		}

		cmd := application.RevokeCommand{
			LogID:      logID,
			OperatorID: middleware.GetOperatorID(c),
		}

		result, err := service.Revoke(c.Request.Context(), cmd)
		if err != nil {
			business.RecordOperationRevoked("unknown", false)
			respondDomainError(responder, err)
			return
		}

		business.RecordOperationRevoked(result.ActionType, true)
		c.JSON(http.StatusOK, result)
	}
}

func recentActivityHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
				limit = l
			}
		}

		query := application.RecentActivityQuery{
			Limit:         limit,
			JoinOperators: c.Query("join_operators") != "false",
		}

		entries, err := service.RecentActivity(c.Request.Context(), query)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"entries": entries,
			"count":   len(entries),
		})
	}
}

func getLogEntryHandler(service *application.QueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		logID, err := domain.ParseLogID(c.Param("id"))
		if err != nil {
			responder.RespondBadRequest("invalid log entry ID")
			return
		}

		entry, err := service.GetLogEntry(c.Request.Context(), logID)
		if err != nil {
			respondDomainError(responder, err)
			return
		}

		c.JSON(http.StatusOK, entry)
	}
}
