package device

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func WipeCommand() *cli.Command {
	return &cli.Command{
		Name:        "wipe",
		Usage:       "Wipe a device",
		Description: "Send an erase command to a device through the legacy API",
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

			result, err := client.WipeDevice(ctx, id)
			if err != nil {
				log.Error("Failed to wipe device", "id", id, "error", err)
				return err
			}
			if result == mdm.WipeFailed {
				return fmt.Errorf("wipe command was not accepted for device %d", id)
			}

			log.Info("Wipe command sent", "id", id)
			return nil
		},
	}
}
