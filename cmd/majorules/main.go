package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run a node with the lobby and HTTP API"`
	Simulate SimulateCmd      `cmd:"" help:"Play matches between bots on an in-process node"`
	Settle   SettleCmd        `cmd:"" help:"Show how a match pool is split"`
	Keygen   KeygenCmd        `cmd:"" help:"Generate a player key"`
	Submit   SubmitCmd        `cmd:"" help:"Sign an operation and submit it to a node"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("majorules"),
		kong.Description("Majority-rules elimination games with escrowed entry fees"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
