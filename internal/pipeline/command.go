package pipeline

import (
	"context"
	"sort"

	"git.home.luguber.info/inful/gwcrelease/internal/config"
	"git.home.luguber.info/inful/gwcrelease/internal/foundation"
)

// Outcome is what a finished command reports back to the executor. Attrs end
// up in the journal and in notifications.
type Outcome struct {
	Attrs map[string]string
}

// Command is one release step a user can name on the command line.
type Command interface {
	Name() string
	Description() string

	// Requires lists options that must all be set.
	Requires() []config.Key
	// RequiresOneOf lists options of which at least one must be set.
	RequiresOneOf() []config.Key

	Execute(ctx context.Context, env *Env) foundation.Result[Outcome, error]
}

// CommandMetadata describes a command.
type CommandMetadata struct {
	Name          string
	Description   string
	Requires      []config.Key
	RequiresOneOf []config.Key
}

// BaseCommand implements the descriptive half of Command.
type BaseCommand struct {
	metadata CommandMetadata
}

// NewBaseCommand creates a base command with the given metadata.
func NewBaseCommand(metadata CommandMetadata) BaseCommand {
	return BaseCommand{metadata: metadata}
}

func (c BaseCommand) Name() string                { return c.metadata.Name }
func (c BaseCommand) Description() string         { return c.metadata.Description }
func (c BaseCommand) Requires() []config.Key      { return c.metadata.Requires }
func (c BaseCommand) RequiresOneOf() []config.Key { return c.metadata.RequiresOneOf }
func (c BaseCommand) Metadata() CommandMetadata   { return c.metadata }

// CheckRequirements returns a MissingOptionError for cmd against opts.
func CheckRequirements(cmd Command, opts *config.Options) error {
	if err := opts.Require(cmd.Requires()...); err != nil {
		return err
	}
	anyOf := cmd.RequiresOneOf()
	if len(anyOf) == 0 {
		return nil
	}
	for _, key := range anyOf {
		if opts.Has(key) {
			return nil
		}
	}
	return opts.Require(anyOf...)
}

// Registry holds the commands by name.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing a command of the same name.
func (r *Registry) Register(cmd Command) *Registry {
	r.commands[cmd.Name()] = cmd
	return r
}

// Get returns the named command.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered command ordered by name.
func (r *Registry) All() []Command {
	names := r.Names()
	out := make([]Command, len(names))
	for i, name := range names {
		out[i] = r.commands[name]
	}
	return out
}

// DefaultRegistry returns a registry with every release command.
func DefaultRegistry() *Registry {
	return NewRegistry().
		Register(NewResetCommand()).
		Register(NewBranchCommand()).
		Register(NewUpdateCommand()).
		Register(NewBuildCommand()).
		Register(NewDeployCommand()).
		Register(NewTagCommand()).
		Register(NewWebCommand()).
		Register(NewHistoryCommand())
}
