package adapt

import "sync"

// PersistedState is the serialisable snapshot of an agent, stored as a
// JSON document per user.
type PersistedState struct {
	Q            map[string]map[string]float64 `json:"q"`
	Epsilon      float64                       `json:"epsilon"`
	LearningRate float64                       `json:"learning_rate"`
	Steps        int                           `json:"steps"`
}

// Export snapshots the Q-table and schedule parameters. The experience
// buffer is deliberately not persisted; replay warms back up from live
// sessions.
func (a *Agent) Export() PersistedState {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := make(map[string]map[string]float64, len(a.q))
	for state, row := range a.q {
		out := make(map[string]float64, len(row))
		for act, v := range row {
			out[string(act)] = v
		}
		q[state] = out
	}
	return PersistedState{
		Q:            q,
		Epsilon:      a.epsilon,
		LearningRate: a.learningRate,
		Steps:        a.steps,
	}
}

// Restore replaces the agent's learned state with a snapshot.
func (a *Agent) Restore(st PersistedState) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.q = make(map[string]map[Action]float64, len(st.Q))
	a.touched = make(map[string]int64, len(st.Q))
	a.tick = 0
	for state, row := range st.Q {
		in := make(map[Action]float64, len(row))
		for act, v := range row {
			in[Action(act)] = v
		}
		a.q[state] = in
		a.tick++
		a.touched[state] = a.tick
	}
	if st.Epsilon > 0 {
		a.epsilon = st.Epsilon
	}
	if st.LearningRate > 0 {
		a.learningRate = st.LearningRate
	}
	a.steps = st.Steps
}

// Registry hands out one agent per user, creating on first use. An
// optional loader seeds a fresh agent from persisted state.
type Registry struct {
	mu     sync.Mutex
	agents map[int64]*Agent
	loader func(userID int64) (PersistedState, bool)
}

func NewRegistry(loader func(userID int64) (PersistedState, bool)) *Registry {
	return &Registry{
		agents: make(map[int64]*Agent),
		loader: loader,
	}
}

func (r *Registry) ForUser(userID int64) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[userID]; ok {
		return a
	}
	a := NewAgent()
	if r.loader != nil {
		if st, ok := r.loader(userID); ok {
			a.Restore(st)
		}
	}
	r.agents[userID] = a
	return a
}

// Loaded returns the user IDs with an agent currently in memory.
func (r *Registry) Loaded() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	return ids
}
