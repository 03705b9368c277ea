package cmd

import (
	"context"
	"fmt"
	"os"

	"fullscreencamera/internal/camera"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "利用可能なカメラを一覧表示する",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(os.Stderr, cfg.LogLevel())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	discovery := camera.NewLinuxDiscovery(cfg.DeviceHints(), cfg.DefaultPosition())
	devices, err := discovery.ScanDevices(ctx)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("カメラが見つかりません")
		return nil
	}

	initial, _ := camera.SelectInitial(devices)

	fmt.Printf("%-10s %-16s %-12s %-12s %-30s\n", "ID", "PATH", "POSITION", "TYPE", "NAME")
	fmt.Println("------------------------------------------------------------------------------------")
	for _, d := range devices {
		mark := ""
		if d.ID == initial.ID {
			mark = " *"
		}
		fmt.Printf("%-10s %-16s %-12s %-12s %-30s\n", d.ID, d.Path, d.Position, d.Type, d.Name+mark)
	}
	return nil
}
