package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/model"
	"github.com/paularlott/cli"
)

func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:        "update",
		Usage:       "Update device fields",
		Description: "Update a device's name, asset tag or location block",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id", Required: true},
		},
		Flags: connectionFlags(
			&cli.StringFlag{Name: "name", Usage: "New device name"},
			&cli.StringFlag{Name: "asset-tag", Usage: "New asset tag"},
			&cli.StringFlag{Name: "room", Usage: "New room"},
			&cli.StringFlag{Name: "building", Usage: "New building"},
			&cli.StringFlag{Name: "department", Usage: "New department"},
			&cli.StringFlag{Name: "username", Usage: "Assigned username"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseID(cmd.GetStringArg("id"))
			if err != nil {
				return err
			}

			update := model.DeviceUpdate{
				Name:     cmd.GetString("name"),
				AssetTag: cmd.GetString("asset-tag"),
			}
			location := model.LocationUpdate{
				Room:       cmd.GetString("room"),
				Building:   cmd.GetString("building"),
				Department: cmd.GetString("department"),
				Username:   cmd.GetString("username"),
			}
			if location != (model.LocationUpdate{}) {
				update.Location = &location
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.UpdateDevice(ctx, id, update); err != nil {
				log.Error("Failed to update device", "id", id, "error", err)
				return err
			}
			log.Info("Device updated", "id", id)
			return nil
		},
	}
}
