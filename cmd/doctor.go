package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapxhq/snapbot/internal/config"
	"github.com/snapxhq/snapbot/internal/greenapi"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, storage, and the WhatsApp connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(cmd.Context())
	},
}

func runDoctor(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	failed := 0
	check := func(name string, err error) {
		if err != nil {
			failed++
			fmt.Printf("  FAIL  %s: %v\n", name, err)
			return
		}
		fmt.Printf("  ok    %s\n", name)
	}

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if cfg == nil {
		return err
	}
	check("config "+cfgPath, err)

	var credErr error
	if cfg.GreenAPI.InstanceID == "" {
		credErr = fmt.Errorf("instance ID not set")
	} else if cfg.GreenAPI.Token == "" {
		credErr = fmt.Errorf("SNAPBOT_GREENAPI_TOKEN not set")
	}
	check("green api credentials", credErr)

	stores, err := openStores(ctx, cfg)
	check("storage", err)
	if err == nil {
		stores.Close()
	}

	if credErr == nil {
		wa := greenapi.New(cfg.GreenAPI.APIBase, cfg.GreenAPI.InstanceID, cfg.GreenAPI.Token)
		settings, err := wa.GetSettings(ctx)
		check("whatsapp connection", err)
		if err == nil {
			fmt.Printf("        instance number: %s\n", settings.WID)
		}
	}

	if cfg.Shortener.APIKey == "" {
		fmt.Println("  note  SNAPBOT_SHORTENER_API_KEY not set; link shortening disabled")
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Println("all checks passed")
	return nil
}
