package cmd

import (
	"errors"
	"fmt"

	"tracksvc/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis server used for the seed lock",
	Long:  `Connect to REDIS_HOST and run a set/get/del round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.RedisEnabled() {
			return errors.New("REDIS_HOST is not set; seeding uses an in-process lock")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := cache.ConnectRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := cache.CheckRedis(cmd.Context(), client); err != nil {
			return err
		}
		fmt.Fprintln(out, "Redis check passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
