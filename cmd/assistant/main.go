// Package main is the entry point for the persona assistant CLI.
package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/persona-assistant/cmd/assistant/app"
)

func main() {
	// .env 可选，存在时仅补充未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("warning: failed to load .env: " + err.Error() + "\n")
	}

	app.NewApp().Run()
}
