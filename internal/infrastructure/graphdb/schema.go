package graphdb

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

var indexNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// fulltextFields are the properties the search index covers.
var fulltextFields = []string{"name", "region", "introduction", "description"}

// FulltextIndexStatement renders the index DDL. Index names cannot be bound as
// parameters in DDL, so the name is validated against a strict pattern first.
func FulltextIndexStatement(name string) (string, error) {
	if !indexNamePattern.MatchString(name) {
		return "", apperr.Validation("FulltextIndexStatement", "invalid index name %q", name)
	}

	fields := make([]string, len(fulltextFields))
	for i, f := range fulltextFields {
		fields[i] = "n." + f
	}
	return fmt.Sprintf("CREATE FULLTEXT INDEX `%s` IF NOT EXISTS FOR (n:%s) ON EACH [%s]",
		name,
		strings.Join(model.LabelStrings(model.KnownLabels), "|"),
		strings.Join(fields, ", "),
	), nil
}

// EnsureFulltextIndex creates the search index if it is missing.
func (m *Manager) EnsureFulltextIndex(ctx context.Context, name string) error {
	stmt, err := FulltextIndexStatement(name)
	if err != nil {
		return err
	}
	if err := m.Execute(ctx, stmt, nil); err != nil {
		return fmt.Errorf("ensure fulltext index %s: %w", name, err)
	}
	log.Printf("[Neo4j] Fulltext index %q is present", name)
	return nil
}
