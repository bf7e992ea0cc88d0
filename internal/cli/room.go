package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room inspection commands",
	}

	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomFindCmd())

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Get room details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(strings.TrimSpace(args[0]))

			var result Room

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/rooms/%s", url.PathEscape(code)), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newRoomFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <player-id>",
		Short: "Find the room a player is in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerRoom

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/players/%s/room", url.PathEscape(args[0])), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
