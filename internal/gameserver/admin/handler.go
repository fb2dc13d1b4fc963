package admin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/udisondev/towergate/internal/model"
)

// Actor is whoever issues a command: an in-world operator or the console.
type Actor interface {
	ID() model.EntityID
	Name() string
	AccessLevel() int32
	// Position is the actor's current position (selection tool, "where").
	Position() model.Position
	// Reply sends a line of feedback to the actor.
	Reply(msg string)
}

// Command is an admin command (//command).
type Command interface {
	// Handle executes the command. args includes the command name at [0].
	Handle(ctx context.Context, actor Actor, args []string) error
	// Names returns all registered command names (without // prefix).
	Names() []string
	// RequiredAccessLevel returns the minimum access level to use this command.
	RequiredAccessLevel() int32
}

// UserCommand is available to everyone (/command).
type UserCommand interface {
	Handle(ctx context.Context, actor Actor, params string) error
	Names() []string
}

// Handler dispatches admin (//) and user (/) commands.
// Commands are registered once at startup, then read-only.
type Handler struct {
	mu        sync.RWMutex
	adminCmds map[string]Command     // name → Command (lowercase)
	userCmds  map[string]UserCommand // name → UserCommand (lowercase)
}

// NewHandler creates a new command handler.
func NewHandler() *Handler {
	return &Handler{
		adminCmds: make(map[string]Command, 16),
		userCmds:  make(map[string]UserCommand, 4),
	}
}

// RegisterAdmin registers an admin command under all its names.
func (h *Handler) RegisterAdmin(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range cmd.Names() {
		h.adminCmds[strings.ToLower(name)] = cmd
	}
}

// RegisterUser registers a user command.
func (h *Handler) RegisterUser(cmd UserCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range cmd.Names() {
		h.userCmds[strings.ToLower(name)] = cmd
	}
}

// HandleAdminCommand processes text typed after the // prefix.
// Returns true if a command was found and executed.
func (h *Handler) HandleAdminCommand(ctx context.Context, actor Actor, text string) bool {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return false
	}
	cmdName := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.adminCmds[cmdName]
	h.mu.RUnlock()

	if !ok {
		actor.Reply("Unknown command: //" + cmdName)
		return false
	}

	level := actor.AccessLevel()
	al := GetAccessLevel(level)
	if al == nil || !al.CanUseAdminCommands {
		slog.Warn("unauthorized admin command attempt",
			"actor", actor.Name(),
			"command", cmdName,
			"accessLevel", level)
		return false
	}

	if level < cmd.RequiredAccessLevel() {
		actor.Reply(fmt.Sprintf("Insufficient access level for //%s (need %d, have %d)",
			cmdName, cmd.RequiredAccessLevel(), level))
		slog.Warn("admin command access denied",
			"actor", actor.Name(),
			"command", cmdName,
			"required", cmd.RequiredAccessLevel(),
			"actual", level)
		return false
	}

	slog.Info("admin command", "actor", actor.Name(), "command", text)

	if err := cmd.Handle(ctx, actor, parts); err != nil {
		actor.Reply(fmt.Sprintf("Command error: %s", err))
		slog.Error("admin command failed",
			"actor", actor.Name(),
			"command", text,
			"err", err)
	}
	return true
}

// HandleUserCommand processes text typed after the / prefix.
func (h *Handler) HandleUserCommand(ctx context.Context, actor Actor, text string) bool {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return false
	}
	cmdName := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.userCmds[cmdName]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	params := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), parts[0]))
	if err := cmd.Handle(ctx, actor, params); err != nil {
		actor.Reply(fmt.Sprintf("Command error: %s", err))
		slog.Error("user command failed",
			"actor", actor.Name(),
			"command", text,
			"err", err)
	}
	return true
}

// AdminCommandNames returns registered admin command names, sorted.
func (h *Handler) AdminCommandNames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.adminCmds))
	for name := range h.adminCmds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AdminCommandCount returns number of registered admin command names.
func (h *Handler) AdminCommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.adminCmds)
}

// UserCommandCount returns number of registered user command names.
func (h *Handler) UserCommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userCmds)
}
