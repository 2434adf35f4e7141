package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/paularlott/cli"
)

func RenameCommand() *cli.Command {
	return &cli.Command{
		Name:        "rename",
		Usage:       "Rename a device",
		Description: "Send a SETTINGS command carrying the new device name",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
			&cli.StringArg{Name: "name", Required: true},
		},
		Flags: connectionFlags(
			&cli.StringFlag{Name: "enforce", Usage: "Set the enforce-name flag before renaming (true/false)", DefaultValue: "true"},
			&cli.StringFlag{Name: "legacy", Usage: "Use the legacy per-command rename endpoint (true/false)", DefaultValue: "false"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd.GetStringArg("id"))
			if err != nil {
				return err
			}
			name := cmd.GetStringArg("name")

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if flagBool(cmd, "legacy") {
				if _, err := client.UpdateDeviceName(ctx, id, name); err != nil {
					log.Error("Failed to rename device", "id", id, "error", err)
					return err
				}
			} else if err := client.RenameDevice(ctx, id, name, flagBool(cmd, "enforce")); err != nil {
				log.Error("Failed to rename device", "id", id, "error", err)
				return err
			}

			log.Info("Device renamed", "id", id, "name", name)
			return nil
		},
	}
}
