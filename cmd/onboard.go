package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/snapxhq/snapbot/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Interactive first-time setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnboard()
	},
}

func runOnboard() error {
	cfgPath := resolveConfigPath()
	cfg, _ := config.Load(cfgPath)
	if cfg == nil {
		cfg = config.Default()
	}

	instanceID := cfg.GreenAPI.InstanceID
	adminNumber := cfg.GreenAPI.AdminNumber
	timeout := fmt.Sprintf("%d", cfg.ChatTimeoutMinutes())

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Green API instance ID").
				Description("From your Green API console, e.g. 1101234567").
				Value(&instanceID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("instance ID is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Admin phone number").
				Description("International format; leave empty to use the instance owner").
				Value(&adminNumber),
			huh.NewInput().
				Title("AI chat timeout (minutes)").
				Value(&timeout),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.GreenAPI.InstanceID = strings.TrimSpace(instanceID)
	cfg.GreenAPI.AdminNumber = strings.TrimSpace(adminNumber)
	fmt.Sscanf(timeout, "%d", &cfg.Chatbot.TimeoutMinutes)

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println("Config written to", cfgPath)
	fmt.Println()
	fmt.Println("Secrets are never stored in the file. Before starting, export:")
	fmt.Println("  SNAPBOT_GREENAPI_TOKEN=<your api token>")
	fmt.Println("  SNAPBOT_SHORTENER_API_KEY=<ice.bio key>   # optional, for link shortening")
	fmt.Println()
	fmt.Println("Then run: snapbot serve")
	return nil
}
