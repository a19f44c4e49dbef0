package order

import (
	"go.uber.org/fx"
)

// Module provides the order service to Fx and drains its event outbox on stop.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(func(lc fx.Lifecycle, svc *Service) {
		lc.Append(fx.StopHook(svc.Close))
	}),
)
