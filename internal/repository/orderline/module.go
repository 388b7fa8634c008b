package orderline

import "go.uber.org/fx"

// Module provides the order-line repository to Fx.
var Module = fx.Provide(NewRepository)
