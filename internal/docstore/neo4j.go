package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j keeps each document as a labeled node with flat properties. It is the
// remote backend for running against a managed graph instance.
type Neo4j struct {
	driver neo4j.DriverWithContext
}

// OpenNeo4j connects to the instance at uri with basic auth.
func OpenNeo4j(uri, user, password string) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}
	return &Neo4j{driver: driver}, nil
}

func (s *Neo4j) Close() error {
	return s.driver.Close(context.Background())
}

// Labels cannot be parameterized in Cypher, so collections map through a
// fixed table.
func label(collection string) (string, error) {
	switch collection {
	case Tasks:
		return "Task", nil
	case Projects:
		return "Project", nil
	default:
		return "", fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
}

func (s *Neo4j) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	lbl, err := label(collection)
	if err != nil {
		return nil, err
	}
	var where []string
	params := map[string]any{}
	for i, f := range q.Filters {
		if !validField(f.Field) {
			return nil, fmt.Errorf("%w: bad field name %q", ErrInvalid, f.Field)
		}
		key := fmt.Sprintf("p%d", i)
		if f.Values != nil {
			where = append(where, fmt.Sprintf("d.%s IN $%s", f.Field, key))
			params[key] = f.Values
			continue
		}
		where = append(where, fmt.Sprintf("d.%s = $%s", f.Field, key))
		params[key] = f.Value
	}
	cypher := fmt.Sprintf("MATCH (d:%s)", lbl)
	if len(where) > 0 {
		cypher += " WHERE " + strings.Join(where, " AND ")
	}
	cypher += " RETURN d.id AS id, d AS doc"
	if q.OrderBy != "" {
		if !validField(q.OrderBy) {
			return nil, fmt.Errorf("%w: bad field name %q", ErrInvalid, q.OrderBy)
		}
		cypher += fmt.Sprintf(" ORDER BY coalesce(d.%s, 0) ASC, d.id ASC", q.OrderBy)
	} else {
		cypher += " ORDER BY d.id ASC"
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var docs []Document
		for res.Next(ctx) {
			record := res.Record()
			id, _ := record.Values[0].(string)
			node, ok := record.Values[1].(neo4j.Node)
			if !ok {
				continue
			}
			fields := make(map[string]any, len(node.Props))
			for k, v := range node.Props {
				if k == "id" {
					continue
				}
				fields[k] = v
			}
			docs = append(docs, Document{ID: id, Fields: fields})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Document), nil
}

func (s *Neo4j) Insert(ctx context.Context, collection string, fields map[string]any) (Document, error) {
	lbl, err := label(collection)
	if err != nil {
		return Document{}, err
	}
	stamped := stampInsert(fields)
	id := newID(collection)

	props := make(map[string]any, len(stamped)+1)
	for k, v := range stamped {
		props[k] = v
	}
	props["id"] = id

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			fmt.Sprintf("CREATE (d:%s) SET d = $props", lbl),
			map[string]any{"props": props},
		)
		return nil, err
	})
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: stamped}, nil
}

func (s *Neo4j) Update(ctx context.Context, collection string, id string, fields map[string]any) error {
	lbl, err := label(collection)
	if err != nil {
		return err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			fmt.Sprintf("MATCH (d:%s {id: $id}) SET d += $props RETURN count(d)", lbl),
			map[string]any{"id": id, "props": stampUpdate(fields)},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record.Values[0], nil
	})
	if err != nil {
		return err
	}
	if n, ok := result.(int64); ok && n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return nil
}
