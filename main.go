package main

import (
	"os"

	"github.com/sqlscheduler/sqlscheduler/lib"
)

func main() {
	app := lib.NewApp()
	os.Exit(app.ArgParse())
}
