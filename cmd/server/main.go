package main

import (
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/serroba/shortlinks/internal/container"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	var app *application

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		if err := options.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		app = newApplication(options)

		hooks.OnStart(app.start)
		hooks.OnStop(app.stop)
	})

	cli.Root().AddCommand(&cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document as YAML",
		Run: func(_ *cobra.Command, _ []string) {
			if err := app.printOpenAPI(os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	})

	cli.Run()
}
