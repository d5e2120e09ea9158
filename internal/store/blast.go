package store

import (
	"fmt"
	"sort"
)

// BlastRadius returns the names of every stored module that depends,
// directly or transitively, on one of the named modules. The named modules
// need not be stored themselves. They are not included unless they sit on
// a dependency cycle.
func (s *Store) BlastRadius(names []string) ([]string, error) {
	seen := make(map[string]bool)
	frontier := names
	for len(frontier) > 0 {
		next, err := s.directDependents(frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0:0]
		for _, name := range next {
			if !seen[name] {
				seen[name] = true
				frontier = append(frontier, name)
			}
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) directDependents(targets []string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT m.name FROM module_edges e
		 JOIN modules m ON m.id = e.module_id
		 WHERE e.kind = 'dependency' AND e.target IN (`+placeholderList(len(targets))+`)`,
		stringsToArgs(targets)...,
	)
	if err != nil {
		return nil, fmt.Errorf("blast radius: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
