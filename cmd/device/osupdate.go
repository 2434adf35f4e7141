package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/paularlott/cli"
)

func OSUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:        "os-update",
		Usage:       "Schedule an OS update",
		Description: "Flush the device's queued commands and schedule an OS update",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: connectionFlags(
			&cli.StringFlag{Name: "force-install", Usage: "Download and install rather than download only (true/false)", DefaultValue: "true"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd.GetStringArg("id"))
			if err != nil {
				return err
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.ScheduleOSUpdate(ctx, id, flagBool(cmd, "force-install")); err != nil {
				log.Error("Failed to schedule OS update", "id", id, "error", err)
				return err
			}
			log.Info("OS update scheduled", "id", id)
			return nil
		},
	}
}
