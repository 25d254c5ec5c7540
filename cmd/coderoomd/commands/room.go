package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/coderoom/engine/internal/cli/output"
	"github.com/coderoom/engine/internal/cli/prompt"
	"github.com/coderoom/engine/internal/cli/timeutil"
	"github.com/coderoom/engine/pkg/config"
	"github.com/spf13/cobra"
)

var roomCmd = &cobra.Command{
	Use:   "room",
	Short: "Manage rooms directly against the configured store",
	Long: `Manage rooms against the store configured in coderoomd's config file,
without going through the gateway's WebSocket protocol.

This is useful for provisioning a room before handing its code and
password to collaborators, or for scripting room creation.`,
}

var roomCreatePassword string

var roomCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new room",
	Long: `Create a new room in the configured store and print its six-character
room code.

Examples:
  # Create a room, prompting for a password
  coderoomd room create

  # Create a room with a password supplied on the command line
  coderoomd room create --password hunter2`,
	RunE: runRoomCreate,
}

func init() {
	roomCreateCmd.Flags().StringVar(&roomCreatePassword, "password", "", "Room password (prompted if omitted)")
	roomCmd.AddCommand(roomCreateCmd)

	roomListCmd.Flags().StringVarP(&roomListOutput, "output", "o", "table", "Output format (table|json|yaml)")
	roomCmd.AddCommand(roomListCmd)
}

func runRoomCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newRoomStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open room store: %w", err)
	}
	defer func() { _ = store.Close() }()

	password := roomCreatePassword
	if password == "" {
		password, err = prompt.PasswordWithConfirmation("Room password", "Confirm password", 8)
		if err != nil {
			return err
		}
	}

	code, err := store.CreateRoom(ctx, password)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	fmt.Printf("Room created: %s\n", code)
	fmt.Println("Share this code and the password with collaborators.")

	return nil
}

var roomListOutput string

var roomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every room in the configured store",
	Long: `List every room in the store configured in coderoomd's config file,
along with when each was created and last accessed. Password hashes are
never printed.

Examples:
  # List rooms as a table
  coderoomd room list

  # List rooms as JSON
  coderoomd room list --output json`,
	RunE: runRoomList,
}

// roomListEntry is the operator-facing projection of rooms.Room: it
// drops PasswordHash and renders timestamps for local display.
type roomListEntry struct {
	Code         string `json:"code" yaml:"code"`
	CreatedAt    string `json:"created_at" yaml:"created_at"`
	LastAccessAt string `json:"last_access_at" yaml:"last_access_at"`
}

type roomListTable []roomListEntry

func (t roomListTable) Headers() []string {
	return []string{"Code", "Created", "Last Access"}
}

func (t roomListTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, e := range t {
		rows[i] = []string{e.Code, e.CreatedAt, e.LastAccessAt}
	}
	return rows
}

func runRoomList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(roomListOutput)
	if err != nil {
		return err
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := newRoomStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open room store: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	entries := make(roomListTable, len(records))
	for i, r := range records {
		entries[i] = roomListEntry{
			Code:         r.Code,
			CreatedAt:    r.CreatedAt.Local().Format(timeutil.LocalTimeFormat),
			LastAccessAt: r.LastAccessAt.Local().Format(timeutil.LocalTimeFormat),
		}
	}

	if format == output.FormatTable && len(entries) == 0 {
		fmt.Println("No rooms found.")
		return nil
	}

	return output.NewPrinter(os.Stdout, format, true).Print(entries)
}
