package quest

import "log/slog"

// Catalog is an immutable index of quest definitions keyed by ID.
type Catalog struct {
	quests map[string]*Definition
	order  []string
}

// NewCatalog indexes definitions by ID. Definitions without an ID are skipped;
// for duplicate IDs the first definition wins and the rest are logged.
func NewCatalog(defs []Definition, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Catalog{
		quests: make(map[string]*Definition, len(defs)),
		order:  make([]string, 0, len(defs)),
	}
	for i := range defs {
		def := defs[i]
		if def.ID == "" {
			logger.Warn("Skipping quest without ID", "index", i, "name", def.Name)
			continue
		}
		if _, exists := c.quests[def.ID]; exists {
			logger.Warn("Duplicate quest ID, keeping first", "quest_id", def.ID, "index", i)
			continue
		}
		c.quests[def.ID] = &def
		c.order = append(c.order, def.ID)
	}
	return c
}

// Quest looks up a definition by ID
func (c *Catalog) Quest(id string) (*Definition, bool) {
	if id == "" {
		return nil, false
	}
	def, ok := c.quests[id]
	return def, ok
}

// All returns every definition in content order
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.quests[id])
	}
	return out
}

// Len returns the number of indexed quests
func (c *Catalog) Len() int {
	return len(c.quests)
}
