package device

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List devices",
		Description: "List the device inventory, optionally enriched with full detail records",
		Flags: connectionFlags(
			&cli.StringFlag{Name: "page-size", Usage: "Page size for the list call", DefaultValue: "1000"},
			&cli.StringFlag{Name: "detailed", Usage: "Fetch the full detail record for every device (true/false)", DefaultValue: "false"},
			&cli.StringFlag{Name: "sequential", Usage: "Fetch details one device at a time (true/false)", DefaultValue: "false"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			pageSize := flagInt(cmd, "page-size", 1000)
			if !flagBool(cmd, "detailed") {
				stubs, err := client.ListDevices(ctx, pageSize)
				if err != nil {
					log.Error("Failed to list devices", "error", err)
					return err
				}
				log.Info("Listed devices", "count", len(stubs))
				printStubs(stubs)
				return nil
			}

			results, err := client.ListDevicesDetailed(ctx, pageSize, mdm.BulkOptions{
				Sequential: flagBool(cmd, "sequential"),
				Progress:   logProgress,
			})
			if err != nil {
				log.Error("Failed to list device details", "error", err)
				return err
			}

			missing := 0
			flattened := make([]map[string]any, 0, len(results))
			for _, r := range results {
				if r.Detail == nil {
					missing++
					continue
				}
				flattened = append(flattened, mdm.Flatten(r.Detail))
			}
			if missing > 0 {
				log.Warn("Some devices had no detail record", "missing", missing)
			}
			return printJSON(flattened)
		},
	}
}
