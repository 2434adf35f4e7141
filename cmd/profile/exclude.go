package profile

import (
	"context"

	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/paularlott/cli"
)

func ExcludeCommand() *cli.Command {
	return &cli.Command{
		Name:        "exclude",
		Usage:       "Exclude a device from a profile",
		Description: "Add a device to a configuration profile's exclusion list",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "device-id", Required: true},
			&cli.StringArg{Name: "profile-id", Required: true},
		},
		Flags: config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			deviceID, err := parseID("device id", cmd.GetStringArg("device-id"))
			if err != nil {
				return err
			}
			profileID, err := parseID("profile id", cmd.GetStringArg("profile-id"))
			if err != nil {
				return err
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.ExcludeDeviceFromProfile(ctx, deviceID, profileID); err != nil {
				log.Error("Failed to exclude device", "device_id", deviceID, "profile_id", profileID, "error", err)
				return err
			}
			log.Info("Device excluded from profile", "device_id", deviceID, "profile_id", profileID)
			return nil
		},
	}
}

func IncludeCommand() *cli.Command {
	return &cli.Command{
		Name:        "include",
		Usage:       "Re-include a device in a profile",
		Description: "Remove a device from a configuration profile's exclusion list",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "device-id", Required: true},
			&cli.StringArg{Name: "profile-id", Required: true},
		},
		Flags: config.GetFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			deviceID, err := parseID("device id", cmd.GetStringArg("device-id"))
			if err != nil {
				return err
			}
			profileID, err := parseID("profile id", cmd.GetStringArg("profile-id"))
			if err != nil {
				return err
			}

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx)

			if err := client.IncludeDeviceInProfile(ctx, deviceID, profileID); err != nil {
				log.Error("Failed to include device", "device_id", deviceID, "profile_id", profileID, "error", err)
				return err
			}
			log.Info("Device included in profile", "device_id", deviceID, "profile_id", profileID)
			return nil
		},
	}
}
