package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type entryView struct {
	ID        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int       `json:"size"`
	FileName  string    `json:"fileName,omitempty"`
	Preview   string    `json:"preview"`
}

func newHistoryCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage clipboard history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			return runHistoryList(v)
		},
	}
	cmd.Flags().Int("limit", 20, "maximum entries to list")
	cmd.Flags().Int("offset", 0, "entries to skip from the newest")
	cmd.Flags().Bool("json", false, "output as JSON")
	addAPIFlag(cmd)
	addConfigFlag(cmd)

	cmd.AddCommand(newHistoryPinCmd())
	cmd.AddCommand(newHistoryRmCmd())
	cmd.AddCommand(newHistoryRestoreCmd())
	return cmd
}

func runHistoryList(v *viper.Viper) error {
	client, base, err := apiBase(v)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/history?limit=%d&offset=%d", base, v.GetInt("limit"), v.GetInt("offset"))

	if v.GetBool("json") {
		resp, err := apiDo(client, "GET", url, nil, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, err = io.Copy(os.Stdout, resp.Body)
		return err
	}

	var entries []entryView
	if err := apiJSON(client, "GET", url, nil, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("History is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t\tKIND\tAGE\tSIZE\tPREVIEW")
	for _, e := range entries {
		pin := ""
		if e.Pinned {
			pin = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, pin, e.Kind, fmtAge(e.CreatedAt),
			humanize.Bytes(uint64(e.Size)), previewCell(e))
	}
	return w.Flush()
}

func previewCell(e entryView) string {
	p := e.Preview
	if e.Kind == "file" && e.FileName != "" {
		p = e.FileName
	}
	p = strings.ReplaceAll(p, "\n", " ")
	p = strings.ReplaceAll(p, "\t", " ")
	if r := []rune(p); len(r) > 60 {
		p = string(r[:60]) + "…"
	}
	return p
}

func parseEntryID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entry id %q", arg)
	}
	return id, nil
}

func newHistoryPinCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Toggle the pinned flag on a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			client, base, err := apiBase(v)
			if err != nil {
				return err
			}
			var out struct {
				ID     uint64 `json:"id"`
				Pinned bool   `json:"pinned"`
			}
			url := fmt.Sprintf("%s/api/v1/history/%d/pin", base, id)
			if err := apiJSON(client, "POST", url, nil, &out); err != nil {
				return err
			}
			if out.Pinned {
				fmt.Printf("pinned entry %d\n", out.ID)
			} else {
				fmt.Printf("unpinned entry %d\n", out.ID)
			}
			return nil
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newHistoryRmCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			client, base, err := apiBase(v)
			if err != nil {
				return err
			}
			url := fmt.Sprintf("%s/api/v1/history/%d", base, id)
			if err := apiJSON(client, "DELETE", url, nil, nil); err != nil {
				return err
			}
			fmt.Printf("deleted entry %d\n", id)
			return nil
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newHistoryRestoreCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Copy a history entry back onto the system clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			id, err := parseEntryID(args[0])
			if err != nil {
				return err
			}
			client, base, err := apiBase(v)
			if err != nil {
				return err
			}
			url := fmt.Sprintf("%s/api/v1/history/%d/restore", base, id)
			if err := apiJSON(client, "POST", url, nil, nil); err != nil {
				return err
			}
			fmt.Printf("entry %d restored to the clipboard\n", id)
			return nil
		},
	}
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}
