package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type statusView struct {
	AutoSyncEnabled bool   `json:"autoSyncEnabled"`
	Syncing         bool   `json:"isSyncing"`
	LastLocalIndex  uint64 `json:"lastLocalIndex"`
	LastServerIndex uint64 `json:"lastServerIndex"`
	HistoryTotal    int    `json:"historyTotal"`
	HistoryUnpinned int    `json:"historyUnpinned"`
}

func newStatusCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon sync state and history counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			return runStatus(v)
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runStatus(v *viper.Viper) error {
	client, base, err := apiBase(v)
	if err != nil {
		return err
	}
	resp, err := apiDo(client, "GET", base+"/api/v1/status", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v.GetBool("json") {
		_, err := io.Copy(os.Stdout, resp.Body)
		return err
	}

	var st statusView
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	onOff := "off"
	if st.AutoSyncEnabled {
		onOff = "on"
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Auto sync:\t%s\n", onOff)
	fmt.Fprintf(w, "Syncing now:\t%v\n", st.Syncing)
	fmt.Fprintf(w, "Last push index:\t%d\n", st.LastLocalIndex)
	fmt.Fprintf(w, "Last pull index:\t%d\n", st.LastServerIndex)
	fmt.Fprintf(w, "History:\t%d entries (%d unpinned)\n", st.HistoryTotal, st.HistoryUnpinned)
	return w.Flush()
}
