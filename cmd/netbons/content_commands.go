package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"netbons/internal/container"
	"netbons/internal/models"
	"netbons/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newContentCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newUploadCommand(ctx),
		newLinkCommand(ctx),
		newRecommendCommand(ctx),
	}
}

func addMetadataFlags(cmd *cobra.Command, meta *services.Metadata) {
	cmd.Flags().StringVar(&meta.Title, "title", "", "Title (defaults to the assistant's draft)")
	cmd.Flags().StringVar(&meta.Description, "description", "", "Description")
	cmd.Flags().StringVar(&meta.Genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&meta.AgeRating, "age-rating", "", "Age rating: L, 10, 12, 14, 16 or 18")
	cmd.Flags().IntVar(&meta.Year, "year", 0, "Release year")
	cmd.Flags().StringVar(&meta.Thumbnail, "thumbnail", "", "Thumbnail image URL")
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var meta services.Metadata
	var assist bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Publish a video file to the community row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readWithProgress(cmd, args[0])
			if err != nil {
				return err
			}

			return ctx.withProfile(cmd, func(app *container.Container) error {
				m, err := app.Uploads.Publish(cmd.Context(), services.UploadRequest{
					Filename:     filepath.Base(args[0]),
					Data:         data,
					UseAssistant: assist,
					Metadata:     meta,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%s)\n", m.Title, humanize.Bytes(uint64(len(data))))
				printMovies(cmd, []models.Movie{m})
				return nil
			})
		},
	}
	addMetadataFlags(cmd, &meta)
	cmd.Flags().BoolVar(&assist, "assist", true, "Ask the metadata assistant for a draft")
	return cmd
}

func newLinkCommand(ctx *commandContext) *cobra.Command {
	var req services.LinkRequest
	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Publish an external video link, e.g. a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			return ctx.withProfile(cmd, func(app *container.Container) error {
				m, err := app.Uploads.AddLink(cmd.Context(), req)
				if err != nil {
					return err
				}
				printMovies(cmd, []models.Movie{m})
				return nil
			})
		},
	}
	addMetadataFlags(cmd, &req.Metadata)
	cmd.Flags().BoolVar(&req.UseAssistant, "assist", false, "Ask the metadata assistant for a draft")
	return cmd
}

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "recommend <wish>",
		Short: "Let the assistant invent a title from a wish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			return ctx.withProfile(cmd, func(app *container.Container) error {
				m, err := app.Uploads.Recommend(cmd.Context(), prompt, add)
				if err != nil {
					return err
				}
				printMovies(cmd, []models.Movie{m})
				fmt.Fprintln(cmd.OutOrStdout(), m.Description)
				if add {
					fmt.Fprintln(cmd.OutOrStdout(), "Added to the catalog")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "Add the idea to the catalog")
	return cmd
}

// readWithProgress loads a file into memory, drawing a byte progress bar
// on stderr.
func readWithProgress(cmd *cobra.Command, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Reading "+filepath.Base(path)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(io.MultiWriter(&buf, bar), f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	_ = bar.Finish()
	return buf.Bytes(), nil
}

func printMovies(cmd *cobra.Command, movies []models.Movie) {
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(movieHeaders, movieRows(movies), movieAligns))
}
