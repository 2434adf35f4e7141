package device

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/martinsuchenak/mdmkit/internal/config"
	"github.com/martinsuchenak/mdmkit/internal/log"
	"github.com/martinsuchenak/mdmkit/internal/mdm"
	"github.com/martinsuchenak/mdmkit/internal/model"
	"github.com/paularlott/cli"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		ListCommand(),
		GetCommand(),
		SearchCommand(),
		UpdateCommand(),
		RenameCommand(),
		WipeCommand(),
		DeleteCommand(),
		InventoryCommand(),
		OSUpdateCommand(),
		FlushCommand(),
	}
}

func connectionFlags(extra ...cli.Flag) []cli.Flag {
	return append(config.GetFlags(), extra...)
}

// connect builds an authenticated client from the parsed flags.
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

func flagBool(cmd *cli.Command, name string) bool {
	v, _ := strconv.ParseBool(cmd.GetString(name))
	return v
}

func flagInt(cmd *cli.Command, name string, fallback int) int {
	n, err := strconv.Atoi(cmd.GetString(name))
	if err != nil {
		return fallback
	}
	return n
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("device id must be a number, got %q", arg)
	}
	return id, nil
}

func printStubs(stubs []model.DeviceStub) {
	if len(stubs) == 0 {
		fmt.Println("No devices found")
		return
	}
	for _, d := range stubs {
		fmt.Printf("%d\t%s\t%s\t%s\n", d.ID, d.Name, d.SerialNumber, d.AssetTag)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// logProgress throttles batch progress to every 25th completion so a
// full-inventory fetch does not flood the console.
func logProgress(completed, total int) {
	if completed%25 == 0 || completed == total {
		log.Info("Fetch progress", "completed", completed, "total", total)
	}
}
