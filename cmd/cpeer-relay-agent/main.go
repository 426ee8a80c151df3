package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/cellrelay/cmd/cpeer-relay-agent/app"
)

func main() {
	app.NewApp().Run()
}
