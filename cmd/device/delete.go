package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/paularlott/cli"
)

func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete",
		Usage:       "Delete a device record",
		Description: "Delete a device record from the server inventory",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: connectionFlags(),
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

			if err := client.DeleteDevice(ctx, id); err != nil {
				log.Error("Failed to delete device", "id", id, "error", err)
				return err
			}
			log.Info("Device deleted", "id", id)
			return nil
		},
	}
}
