package orderline

import "go.uber.org/fx"

// Module provides the order-line service to Fx.
var Module = fx.Provide(NewService)
