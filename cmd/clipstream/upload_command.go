package main

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file and queue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open upload file: %w", err)
			}
			defer file.Close()

			pr, pw := io.Pipe()
			writer := multipart.NewWriter(pw)
			go func() {
				err := streamMultipart(writer, file, filepath.Base(path), title, description)
				pw.CloseWithError(err)
			}()

			req, err := ctx.newRequest(http.MethodPost, "/api/videos", &requestBody{
				reader:      pr,
				contentType: writer.FormDataContentType(),
			})
			if err != nil {
				return err
			}

			var item videoView
			if err := doJSON(ctx.httpClient(), req, &item); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, item)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as %s (status %s)\n", item.OriginalFilename, item.ID, item.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title (defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Item description")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func streamMultipart(writer *multipart.Writer, file *os.File, filename, title, description string) error {
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			return err
		}
	}
	if description != "" {
		if err := writer.WriteField("description", description); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return writer.Close()
}
