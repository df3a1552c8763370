package backend

import (
	"context"
	"sort"

	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// GenericAgent is the route for agent types with no registered backend.
const GenericAgent = "generic"

// Dispatcher routes a task to the backend registered for its agent type.
// An empty agent type routes as implementation_agent; an unregistered one
// goes to the generic backend.
type Dispatcher struct {
	routes  map[string]Backend
	generic Backend
}

// NewDispatcher creates a Dispatcher whose unmatched tasks go to generic.
func NewDispatcher(generic Backend) *Dispatcher {
	return &Dispatcher{
		routes:  make(map[string]Backend),
		generic: generic,
	}
}

// Register routes agentType to b, replacing any previous route.
func (d *Dispatcher) Register(agentType string, b Backend) *Dispatcher {
	d.routes[agentType] = b
	return d
}

// Route returns the agent type a task is dispatched under.
func (d *Dispatcher) Route(task models.Task) string {
	agent := task.AgentType
	if agent == "" {
		agent = models.AgentImplementation
	}
	if _, ok := d.routes[agent]; ok {
		return agent
	}
	return GenericAgent
}

// Routes lists the registered agent types.
func (d *Dispatcher) Routes() []string {
	out := make([]string, 0, len(d.routes))
	for agent := range d.routes {
		out = append(out, agent)
	}
	sort.Strings(out)
	return out
}

// Execute runs the task on its routed backend.
func (d *Dispatcher) Execute(ctx context.Context, task models.Task) (*Result, error) {
	route := d.Route(task)
	if route == GenericAgent {
		return d.generic.Execute(ctx, task)
	}
	return d.routes[route].Execute(ctx, task)
}

// KnownAgents are the agent types with a dedicated route.
var KnownAgents = []string{
	models.AgentPlanning,
	models.AgentImplementation,
	models.AgentTesting,
	models.AgentDeployment,
}

// FromCommands builds a Dispatcher from configured argv lists keyed by agent
// type ("generic" covers unknown types). Known agents without a command run
// on sim.
func FromCommands(commands map[string][]string, sim Backend) *Dispatcher {
	backendFor := func(agent string) Backend {
		if argv := commands[agent]; len(argv) > 0 {
			return NewCommand(argv)
		}
		return sim
	}

	d := NewDispatcher(backendFor(GenericAgent))
	for _, agent := range KnownAgents {
		d.Register(agent, backendFor(agent))
	}
	for agent := range commands {
		if agent != GenericAgent {
			d.Register(agent, backendFor(agent))
		}
	}
	return d
}
