package device

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "get",
		Usage:       "Get a device",
		Description: "Get one device record by id",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: connectionFlags(
			&cli.StringFlag{Name: "detailed", Usage: "Fetch the full detail record (true/false)", DefaultValue: "false"},
			&cli.StringFlag{Name: "flat", Usage: "Print the flattened projection, implies --detailed (true/false)", DefaultValue: "false"},
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

			flat := flagBool(cmd, "flat")
			detailed := flagBool(cmd, "detailed") || flat
			device, err := client.GetDevice(ctx, id, detailed)
			if err != nil {
				log.Error("Failed to get device", "id", id, "error", err)
				return err
			}
			if device == nil {
				log.Warn("Device not found", "id", id)
				return fmt.Errorf("device %d not found", id)
			}

			if flat {
				return printJSON(mdm.Flatten(device))
			}
			return printJSON(device)
		},
	}
}
