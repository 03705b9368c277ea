package cmd

import (
	"context"
	"fmt"
	"os"

	"fullscreencamera/internal/camera"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "1枚撮影してフォトライブラリに保存する",
	RunE:  runSnap,
}

func init() {
	snapCmd.Flags().String("orientation", "portrait", "撮影時の向き (portrait/landscape_right/portrait_upside_down/landscape_left)")
	snapCmd.Flags().Bool("switch", false, "反対側のカメラで撮影する")
	viper.BindPFlag("orientation", snapCmd.Flags().Lookup("orientation"))
	viper.BindPFlag("switch", snapCmd.Flags().Lookup("switch"))

	rootCmd.AddCommand(snapCmd)
}

func runSnap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(os.Stderr, cfg.LogLevel())

	orientation, ok := camera.ParseOrientation(viper.GetString("orientation"))
	if !ok {
		return fmt.Errorf("無効な向き: %s", viper.GetString("orientation"))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.run(ctx); err != nil {
		return err
	}

	if viper.GetBool("switch") {
		result, err := a.controller.SwitchCamera(ctx)
		if err != nil {
			return err
		}
		if !result.Switched {
			fmt.Fprintln(os.Stderr, "反対側のカメラが無いため切り替えませんでした")
		}
	}

	result := <-a.controller.Capture(ctx, orientation)
	if result.Err != nil {
		return result.Err
	}

	fmt.Printf("%s\t%dx%d\t%s\n", result.Asset.ID, result.Image.Width, result.Image.Height, result.Asset.Path)
	return nil
}
