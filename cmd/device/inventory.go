package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/paularlott/cli"
)

func InventoryCommand() *cli.Command {
	return &cli.Command{
		Name:        "inventory",
		Usage:       "Request an inventory update",
		Description: "Ask a device to report fresh inventory to the server",
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

			if _, err := client.UpdateInventory(ctx, id); err != nil {
				log.Error("Failed to request inventory update", "id", id, "error", err)
				return err
			}
			log.Info("Inventory update requested", "id", id)
			return nil
		},
	}
}
