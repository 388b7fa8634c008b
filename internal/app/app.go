package app

import (
	"go.uber.org/fx"

	"github.com/stocklinehq/stockline/internal/cache"
	"github.com/stocklinehq/stockline/internal/config"
	"github.com/stocklinehq/stockline/internal/database"
	"github.com/stocklinehq/stockline/internal/logger"
	"github.com/stocklinehq/stockline/internal/messaging"
	"github.com/stocklinehq/stockline/internal/observability"
	repositoryorderline "github.com/stocklinehq/stockline/internal/repository/orderline"
	repositorysupplier "github.com/stocklinehq/stockline/internal/repository/supplier"
	repositorywarehouse "github.com/stocklinehq/stockline/internal/repository/warehouse"
	grpcserver "github.com/stocklinehq/stockline/internal/server/grpc"
	httpserver "github.com/stocklinehq/stockline/internal/server/http"
	serviceorderline "github.com/stocklinehq/stockline/internal/service/orderline"
	servicesupplier "github.com/stocklinehq/stockline/internal/service/supplier"
	servicewarehouse "github.com/stocklinehq/stockline/internal/service/warehouse"
	transporthttp "github.com/stocklinehq/stockline/internal/transport/http"
	"github.com/stocklinehq/stockline/internal/worker"
	workerorderline "github.com/stocklinehq/stockline/internal/worker/orderline"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorderline.Module,
	repositorysupplier.Module,
	repositorywarehouse.Module,
	serviceorderline.Module,
	servicesupplier.Module,
	servicewarehouse.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC wires the gRPC server on top of the core modules.
var GRPC = fx.Options(
	Core,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorderline.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
