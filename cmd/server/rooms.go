package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkeye/Chorus/internal/adapters/store"
	"github.com/dkeye/Chorus/internal/app"
)

// newRoomsCmd edits the persisted registry without a running server.
// A running server only picks the changes up on restart.
func newRoomsCmd(configFile *string) *cobra.Command {
	roomsCmd := &cobra.Command{
		Use:   "rooms",
		Short: "Inspect or edit the persisted room registry",
	}

	withRegistry := func(cmd *cobra.Command, fn func(*app.RoomRegistry) error) error {
		cfg, err := loadConfig(*configFile)
		if err != nil {
			return err
		}
		s, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		reg := app.NewRoomRegistry(s)
		if err := reg.Load(cmd.Context()); err != nil {
			return err
		}
		return fn(reg)
	}

	roomsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered rooms",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRegistry(cmd, func(reg *app.RoomRegistry) error {
					for _, name := range reg.List() {
						fmt.Fprintln(cmd.OutOrStdout(), name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <room>",
			Short: "Register a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(cmd, func(reg *app.RoomRegistry) error {
					name, created, err := reg.Create(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if !created {
						fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", name)
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s created\n", name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <room>",
			Short: "Unregister a room",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRegistry(cmd, func(reg *app.RoomRegistry) error {
					name, removed, err := reg.Remove(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if !removed {
						return fmt.Errorf("room %s does not exist", name)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", name)
					return nil
				})
			},
		},
	)
	return roomsCmd
}
