package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipkeep/clipkeep/internal/content"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "copy [file]",
		Short: "Send stdin or a file to the daemon clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindViper(cmd, v); err != nil {
				return err
			}
			return runCopy(v, args)
		},
	}
	cmd.Flags().String("kind", "text", "content kind (text|screenshot|file)")
	addAPIFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func runCopy(v *viper.Viper, args []string) error {
	var (
		data     []byte
		fileName string
		wireKind = v.GetString("kind")
		err      error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fileName = filepath.Base(args[0])
		wireKind = content.KindFile.WireName()
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(data) == 0 {
		return nil
	}
	if _, ok := content.KindFromWire(wireKind); !ok {
		return fmt.Errorf("unknown kind %q (want text, screenshot or file)", wireKind)
	}

	client, base, err := apiBase(v)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Content-Type", "application/octet-stream")
	header.Set("X-Type", wireKind)
	if fileName != "" {
		header.Set("X-FileName", url.PathEscape(fileName))
	}
	resp, err := apiDo(client, "POST", base+"/api/v1/clipboard", bytes.NewReader(data), header)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
