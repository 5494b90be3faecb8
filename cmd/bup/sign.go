package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"bup/pkg/bilibili"
	"bup/pkg/config"
	"bup/pkg/logger"
	"bup/pkg/transport"

	"github.com/spf13/cobra"
)

var (
	signImg string
	signSub string
)

// signCmd represents the sign command
var signCmd = &cobra.Command{
	Use:   "sign <mid>",
	Short: "Print a signed profile request URL",
	Long: `Sign the profile query of a creator and print the full URL.

Key material is fetched from the nav endpoint unless both --img and --sub
are given, in which case no request is made.`,
	Example: `  bup sign 2
  bup sign 2 --img 7cd084941338484aae1ad9425b84077c --sub 4932caff0ff746eab6f01bf08b70ac45`,
	Args: cobra.ExactArgs(1),
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&signImg, "img", "", "img key fragment")
	signCmd.Flags().StringVar(&signSub, "sub", "", "sub key fragment")
	signCmd.Flags().StringVar(&transportKind, "transport", "", "HTTP transport (browser, standard)")
	signCmd.Flags().StringVar(&proxyURL, "proxy", "", "proxy URL for the nav request")
}

func runSign(cmd *cobra.Command, args []string) error {
	mid := args[0]
	if _, err := strconv.ParseUint(mid, 10, 64); err != nil {
		return fmt.Errorf("invalid mid %q: must be a positive integer", mid)
	}

	km := bilibili.KeyMaterial{Img: signImg, Sub: signSub}
	if !km.Valid() {
		if signImg != "" || signSub != "" {
			return errors.New("--img and --sub must be given together")
		}

		// No project is needed here, so skip the uid validation of Load.
		cfg := config.DefaultConfig()
		if err := cfg.LoadFromEnv(); err != nil {
			return err
		}
		cfg.MergeCommandLineFlags(platformFlags())

		log, err := logger.New(&cfg.Logging, logger.WithVersion(version))
		if err != nil {
			return err
		}
		doer, err := transport.New(transport.OptionsFromConfig(&cfg.Platform))
		if err != nil {
			return err
		}
		km, err = bilibili.NewKeyCache(doer, bilibili.DefaultEndpoints().Nav, cfg.Platform.UserAgent, log).Refresh(cmd.Context())
		if err != nil {
			return err
		}
	}

	params := url.Values{}
	params.Set("mid", mid)
	query := bilibili.NewSigner().Sign(bilibili.NewShim().Decorate(params), km)
	fmt.Println(bilibili.DefaultEndpoints().Profile + "?" + query)
	return nil
}
