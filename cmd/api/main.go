// Command api serves the order terminal endpoints until interrupted.
package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/restaurant/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
