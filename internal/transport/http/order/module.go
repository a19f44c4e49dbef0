package order

import (
	"go.uber.org/fx"
)

// Module registers the terminal routes on the shared Echo router.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)
