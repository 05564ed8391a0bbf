package main

import (
	"fmt"
	"time"

	"netbons/internal/container"
	"netbons/internal/services"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSignupCommand(ctx),
		newLoginCommand(ctx),
		{
			Use:   "logout",
			Short: "End the session on this device",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
					app.Sessions.Logout(cmd.Context())
					fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
					return nil
				})
			},
		},
		{
			Use:   "status",
			Short: "Show who is logged in and which profile is active",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
					printSnapshot(cmd, app.Sessions.Snapshot())
					return nil
				})
			},
		},
		{
			Use:   "profiles",
			Short: "List the profiles of the logged-in account",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
					profiles, err := app.Sessions.Profiles()
					if err != nil {
						return err
					}
					active := ""
					if snap := app.Sessions.Snapshot(); snap.Profile != nil {
						active = snap.Profile.ID
					}
					rows := make([][]string, 0, len(profiles))
					for _, p := range profiles {
						rows = append(rows, []string{p.ID, p.Name, yesNo(p.IsKids), yesNo(p.ID == active)})
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Kids", "Active"}, rows, nil))
					return nil
				})
			},
		},
		{
			Use:   "profile <id>",
			Short: "Select the active profile",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
					p, err := app.Sessions.SelectProfile(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Watching as %s\n", p.Name)
					return nil
				})
			},
		},
	}
}

func newSignupCommand(ctx *commandContext) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account on this device and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
				snap, err := app.Sessions.Signup(cmd.Context(), name, email, password)
				if err != nil {
					return fmt.Errorf("signup: %w", err)
				}
				printSnapshot(cmd, snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 4 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContainer(cmd.Context(), container.PlaybackTempFiles, func(app *container.Container) error {
				snap, err := app.Sessions.Login(cmd.Context(), email, password)
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				printSnapshot(cmd, snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func printSnapshot(cmd *cobra.Command, snap services.SessionSnapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "State:   %s\n", snap.State)
	if snap.User != nil {
		fmt.Fprintf(out, "User:    %s <%s>\n", snap.User.Name, snap.User.Email)
	}
	if snap.Profile != nil {
		fmt.Fprintf(out, "Profile: %s\n", snap.Profile.Name)
	}
	if !snap.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires: %s (%s)\n", humanize.Time(snap.ExpiresAt), snap.ExpiresAt.Format(time.DateTime))
	}
	switch snap.State {
	case services.StateLoggedOut:
		fmt.Fprintln(out, "Run `netbons login` or `netbons signup` to start.")
	case services.StateAuthenticated:
		fmt.Fprintln(out, "Pick a profile with `netbons profile <id>`.")
	}
}
