package warehouse

import "go.uber.org/fx"

// Module provides the warehouse service to Fx.
var Module = fx.Provide(NewService)
