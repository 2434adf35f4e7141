package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func FlushCommand() *cli.Command {
	return &cli.Command{
		Name:        "flush",
		Usage:       "Flush queued commands",
		Description: "Clear a device's queued commands by state (Pending, Failed or Pending+Failed)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: connectionFlags(
			&cli.StringFlag{Name: "status", Usage: "Command states to flush", DefaultValue: mdm.FlushPendingFailed},
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

			if err := client.FlushCommands(ctx, id, cmd.GetString("status")); err != nil {
				log.Error("Failed to flush commands", "id", id, "error", err)
				return err
			}
			log.Info("Commands flushed", "id", id, "status", cmd.GetString("status"))
			return nil
		},
	}
}
