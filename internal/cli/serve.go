package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/insightdelivered/broker-statement-converter/internal/api"
)

type serveCmd struct {
	app  *App
	port string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the parse API over HTTP" }
func (*serveCmd) Usage() string {
	return `bsc serve [-port <port>]

  GET  /api/health  liveness and version
  POST /api/parse   multipart form: file, broker (optional)
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", c.app.Config.ServerPort, "Port to listen on")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	h := &api.Handler{Engine: c.app.Engine, Log: c.app.Log}
	app := h.NewApp()

	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()

	addr := ":" + c.port
	c.app.Log.Info().Str("addr", addr).Msg("server listening")
	if err := app.Listen(addr); err != nil {
		fmt.Fprintf(c.app.Stderr, "server error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
