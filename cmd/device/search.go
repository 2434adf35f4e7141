package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/model"
	"github.com/paularlott/cli"
)

func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:        "search",
		Usage:       "Search devices",
		Description: "Search devices by serial, name, UDID or asset tag",
		Flags: connectionFlags(
			&cli.StringFlag{Name: "serial", Usage: "Serial number"},
			&cli.StringFlag{Name: "name", Usage: "Device name"},
			&cli.StringFlag{Name: "udid", Usage: "Device UDID"},
			&cli.StringFlag{Name: "asset-tag", Usage: "Asset tag"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			criteria := model.SearchCriteria{
				Serial:   cmd.GetString("serial"),
				Name:     cmd.GetString("name"),
				UDID:     cmd.GetString("udid"),
				AssetTag: cmd.GetString("asset-tag"),
			}
			stubs, err := client.SearchDevices(ctx, criteria)
			if err != nil {
				log.Error("Search failed", "error", err)
				return err
			}

			log.Info("Search completed", "results", len(stubs))
			printStubs(stubs)
			return nil
		},
	}
}
