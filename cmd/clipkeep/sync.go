package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSyncCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a full push+pull cycle now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			client, base, err := apiBase(v)
			if err != nil {
				return err
			}
			var st statusView
			if err := apiJSON(client, "POST", base+"/api/v1/sync", nil, &st); err != nil {
				return err
			}
			fmt.Printf("sync completed (push #%d, pull #%d)\n", st.LastLocalIndex, st.LastServerIndex)
			return nil
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newAutoSyncCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "autosync",
		Short: "Toggle automatic background sync on or off",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			client, base, err := apiBase(v)
			if err != nil {
				return err
			}
			var out struct {
				AutoSyncEnabled bool `json:"autoSyncEnabled"`
			}
			if err := apiJSON(client, "POST", base+"/api/v1/autosync", nil, &out); err != nil {
				return err
			}
			if out.AutoSyncEnabled {
				fmt.Println("auto-sync enabled")
			} else {
				fmt.Println("auto-sync disabled")
			}
			return nil
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}
