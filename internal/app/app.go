package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/restaurant/internal/cache"
	"github.com/Additional-Code/restaurant/internal/clock"
	"github.com/Additional-Code/restaurant/internal/config"
	"github.com/Additional-Code/restaurant/internal/database"
	"github.com/Additional-Code/restaurant/internal/kitchen"
	"github.com/Additional-Code/restaurant/internal/logger"
	"github.com/Additional-Code/restaurant/internal/messaging"
	"github.com/Additional-Code/restaurant/internal/observability"
	repositoryorder "github.com/Additional-Code/restaurant/internal/repository/order"
	grpcserver "github.com/Additional-Code/restaurant/internal/server/grpc"
	httpserver "github.com/Additional-Code/restaurant/internal/server/http"
	serviceorder "github.com/Additional-Code/restaurant/internal/service/order"
	transporthttp "github.com/Additional-Code/restaurant/internal/transport/http"
	"github.com/Additional-Code/restaurant/internal/worker"
	workerorder "github.com/Additional-Code/restaurant/internal/worker/order"
)

// Core is everything needed to take and read orders: configuration, storage,
// the order service and its event publisher. Every executable starts here.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	database.Module,
	cache.Module,
	messaging.Module,
	clock.Module,
	kitchen.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP serves the terminal endpoints and the gRPC health service.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker follows the order event stream and prints kitchen tickets.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// EventLogger sends Fx's own lifecycle events through the service logger.
var EventLogger = fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Named("fx")}
})

var Module = fx.Options(HTTP, EventLogger)
