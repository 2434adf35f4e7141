package profile

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
		ExcludeCommand(),
		IncludeCommand(),
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
