// Command api runs the stockline HTTP service on its own, without the
// CLI wrapper.
package main

import (
	"go.uber.org/fx"

	"github.com/stocklinehq/stockline/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
