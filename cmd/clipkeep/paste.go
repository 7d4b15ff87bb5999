package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Write the current clipboard content to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			return runPaste(v)
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runPaste(v *viper.Viper) error {
	client, base, err := apiBase(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("GET", base+"/api/v1/clipboard", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Empty clipboard: exit 0, print nothing (pbpaste behaviour).
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
