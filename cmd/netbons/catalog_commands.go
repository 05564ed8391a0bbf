package main

import (
	"fmt"
	"strconv"
	"strings"

	"netbons/internal/container"
	"netbons/internal/models"
	"netbons/internal/services"

	"github.com/spf13/cobra"
)

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newBrowseCommand(ctx),
		newShowCommand(ctx),
		{
			Use:   "watchlist <id>",
			Short: "Add an entry to My List, or remove it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withProfile(cmd, func(app *container.Container) error {
					m, ok := app.Catalog.ToggleWatchList(cmd.Context(), args[0])
					if !ok {
						return services.ErrMovieNotFound
					}
					if m.IsInMyList {
						fmt.Fprintf(cmd.OutOrStdout(), "%s added to My List\n", m.Title)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s removed from My List\n", m.Title)
					}
					return nil
				})
			},
		},
		{
			Use:   "play <id>",
			Short: "Print a playable URL for an entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withProfile(cmd, func(app *container.Container) error {
					pb, err := app.Player.Resolve(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), pb.URL)
					return nil
				})
			},
		},
	}
}

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Show the home feed, or a single category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProfile(cmd, func(app *container.Container) error {
				out := cmd.OutOrStdout()
				if category != "" {
					movies := app.Catalog.ByCategory(models.CategoryID(category))
					fmt.Fprintln(out, renderTable(movieHeaders, movieRows(movies), movieAligns))
					return nil
				}

				hero := app.Catalog.Hero()
				fmt.Fprintf(out, "★ %s (%d) %s\n%s\n\n", hero.Title, hero.Year, ageBadge(hero.AgeRating), hero.Description)
				for _, row := range app.Catalog.Rows() {
					fmt.Fprintf(out, "%s [%s]\n", row.Title, row.ID)
					fmt.Fprintln(out, renderTable(movieHeaders, movieRows(row.Movies), movieAligns))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "addedByUser, myList, trending, newReleases, originals or topRated")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var noPitch bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the details of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProfile(cmd, func(app *container.Container) error {
				m, ok := app.Catalog.Get(args[0])
				if !ok {
					return services.ErrMovieNotFound
				}

				rows := [][]string{
					{"Title", m.Title},
					{"Year", strconv.Itoa(m.Year)},
					{"Rating", strconv.FormatFloat(m.Rating, 'f', 1, 64)},
					{"Age", ageBadge(m.AgeRating)},
					{"Genres", strings.Join(m.Genres, ", ")},
					{"Duration", m.Duration},
					{"Author", m.AuthorName},
					{"My List", yesNo(m.IsInMyList)},
					{"Source", string(m.SourceKind())},
					{"Description", m.Description},
				}
				if !noPitch {
					rows = append(rows, []string{"Why watch", app.Assistant.WhyWatch(cmd.Context(), m.Title)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noPitch, "no-pitch", false, "Skip the assistant's short pitch")
	return cmd
}

// withProfile runs fn only once a profile has been selected.
func (c *commandContext) withProfile(cmd *cobra.Command, fn func(*container.Container) error) error {
	return c.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
		if _, err := app.Sessions.ActiveProfile(); err != nil {
			return err
		}
		return fn(app)
	})
}
