package query

import (
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

// Entity is one side of a result row.
type Entity struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// Relationship is the edge of a result row. Start and End keep the stored
// direction even when the pattern was matched undirected.
type Relationship struct {
	Type  string
	Start string
	End   string
}

// Row is a decoded graph row. Target and Rel are nil when an optional
// expansion matched nothing.
type Row struct {
	Source *Entity
	Target *Entity
	Rel    *Relationship
}

// DecodeRow reads the columns written by the shared row projection.
func DecodeRow(r repository.Row) Row {
	var row Row
	if id := RowString(r, "sourceId"); id != "" {
		row.Source = &Entity{ID: id, Labels: RowStrings(r, "sourceLabels"), Props: RowMap(r, "sourceProps")}
	}
	if id := RowString(r, "targetId"); id != "" {
		row.Target = &Entity{ID: id, Labels: RowStrings(r, "targetLabels"), Props: RowMap(r, "targetProps")}
	}
	if t := RowString(r, "relType"); t != "" {
		row.Rel = &Relationship{Type: t, Start: RowString(r, "relStart"), End: RowString(r, "relEnd")}
	}
	return row
}

// Aggregator folds rows into a Graph. The first occurrence of a node id wins
// and a (source, target, type) link is emitted once.
type Aggregator struct {
	nodes []model.GraphNode
	index map[string]int
	links []model.GraphLink
	seen  map[model.GraphLink]struct{}
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		nodes: []model.GraphNode{},
		index: make(map[string]int),
		links: []model.GraphLink{},
		seen:  make(map[model.GraphLink]struct{}),
	}
}

// AddEntity inserts e unless its id is already present.
func (a *Aggregator) AddEntity(e *Entity) {
	if e == nil || e.ID == "" {
		return
	}
	if _, ok := a.index[e.ID]; ok {
		return
	}
	props := e.Props
	if props == nil {
		props = map[string]any{}
	}
	label := model.ResolveLabel(e.Labels)
	a.index[e.ID] = len(a.nodes)
	a.nodes = append(a.nodes, model.GraphNode{
		ID:         e.ID,
		Name:       model.ResolveName(label, props),
		Label:      label,
		Properties: props,
	})
}

// AddLink appends l unless an equal link was already emitted.
func (a *Aggregator) AddLink(l model.GraphLink) {
	if l.Source == "" || l.Target == "" || l.Type == "" {
		return
	}
	if _, ok := a.seen[l]; ok {
		return
	}
	a.seen[l] = struct{}{}
	a.links = append(a.links, l)
}

// Add folds one row. Rows without a related entity contribute only their source.
func (a *Aggregator) Add(row Row) {
	if row.Source == nil {
		return
	}
	a.AddEntity(row.Source)
	if row.Target == nil || row.Rel == nil {
		return
	}
	a.AddEntity(row.Target)

	link := model.GraphLink{Source: row.Rel.Start, Target: row.Rel.End, Type: row.Rel.Type}
	if link.Source == "" || link.Target == "" {
		link.Source, link.Target = row.Source.ID, row.Target.ID
	}
	a.AddLink(link)
}

// Graph returns the aggregated result. Slices are never nil.
func (a *Aggregator) Graph() model.Graph {
	return model.Graph{Nodes: a.nodes, Links: a.links}
}

// Aggregate decodes and folds raw rows in order.
func Aggregate(rows []repository.Row) model.Graph {
	agg := NewAggregator()
	for _, r := range rows {
		agg.Add(DecodeRow(r))
	}
	return agg.Graph()
}
