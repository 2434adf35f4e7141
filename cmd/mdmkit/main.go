package main

import (
	"context"
	"fmt"
	"os"

	"github.com/martinsuchenak/mdmkit/cmd/device"
	"github.com/martinsuchenak/mdmkit/cmd/prestage"
	"github.com/martinsuchenak/mdmkit/cmd/profile"
	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func main() {
	root := &cli.Command{
		Name:        "mdmkit",
		Version:     "0.2.0",
		Usage:       "Manage mobile devices on an MDM server",
		Description: "Operator tooling for device inventory, commands, configuration-profile exclusions and prestage enrollment scope",
		Commands: []*cli.Command{
			{
				Name:     "device",
				Usage:    "Device inventory and commands",
				Commands: device.Commands(),
			},
			{
				Name:     "profile",
				Usage:    "Configuration-profile exclusion lists",
				Commands: profile.Commands(),
			},
			{
				Name:     "prestage",
				Usage:    "Prestage enrollment scope",
				Commands: prestage.Commands(),
			},
			pingCommand(),
		},
	}

	if err := root.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:        "ping",
		Usage:       "Check server reachability",
		Description: "Check whether the MDM server answers its probe endpoint",
		Flags:       config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Load()
			ok, err := mdm.Available(ctx, cfg.ServerURL, cfg.CAFile, cfg.SkipTLSVerify)
			if err != nil {
				return fmt.Errorf("server not reachable: %w", err)
			}
			if !ok {
				return fmt.Errorf("server answered but is not healthy")
			}
			fmt.Println("Server is reachable")
			return nil
		},
	}
}
