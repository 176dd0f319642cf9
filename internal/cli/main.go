package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
