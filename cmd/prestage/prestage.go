package prestage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/paularlott/cli"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		AddCommand(),
		RemoveCommand(),
	}
}

func connect(ctx context.Context) (*mdm.Client, error) {
	cfg := config.Load()
	log.Configure(cfg.LogLevel, cfg.LogFormat)

	client, err := mdm.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return client, nil
}

func parseID(label, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", label, arg)
	}
	return id, nil
}

func AddCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Add a device to a prestage",
		Description: "Scope a device's serial number into an enrollment prestage",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "prestage-id", Required: true},
			&cli.StringArg{Name: "device-id", Required: true},
		},
		Flags: append(config.GetFlags(),
			&cli.StringFlag{Name: "serial", Usage: "Serial number, resolved from the device id when omitted"},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			prestageID, err := parseID("prestage id", cmd.GetStringArg("prestage-id"))
			if err != nil {
				return err
			}
			deviceID, err := parseID("device id", cmd.GetStringArg("device-id"))
			if err != nil {
				return err
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.AddDeviceToPrestage(ctx, prestageID, deviceID, cmd.GetString("serial")); err != nil {
				log.Error("Failed to add device to prestage", "device_id", deviceID, "prestage_id", prestageID, "error", err)
				return err
			}
			log.Info("Device added to prestage", "device_id", deviceID, "prestage_id", prestageID)
			return nil
		},
	}
}

func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:        "remove",
		Usage:       "Remove a device from its prestage",
		Description: "Remove a device's serial number from whichever prestage it is scoped to",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "device-id", Required: true},
		},
		Flags: config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			deviceID, err := parseID("device id", cmd.GetStringArg("device-id"))
			if err != nil {
				return err
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.RemoveDeviceFromPrestage(ctx, deviceID); err != nil {
				log.Error("Failed to remove device from prestage", "device_id", deviceID, "error", err)
				return err
			}
			log.Info("Device removed from prestage", "device_id", deviceID)
			return nil
		},
	}
}
