package http

import (
	"go.uber.org/fx"

	orderlinetransport "github.com/stocklinehq/stockline/internal/transport/http/orderline"
	suppliertransport "github.com/stocklinehq/stockline/internal/transport/http/supplier"
	warehousetransport "github.com/stocklinehq/stockline/internal/transport/http/warehouse"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	orderlinetransport.Module,
	suppliertransport.Module,
	warehousetransport.Module,
)
