package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	Authority = "ncas"
	Scope     = "amf"
)

// termPattern is the set of names the archive accepts after normalisation.
var termPattern = regexp.MustCompile(`^[a-z0-9\-@\.]*$`)

// createDate is stamped on every term so repeated runs write identical files.
var createDate = time.Date(2018, 7, 9, 13, 9, 0, 0, time.UTC)

// NormaliseName lowercases name and maps "_" and spaces to "-".
func NormaliseName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "-", " ", "-").Replace(n)
}

// FSStore writes an archive as plain files:
//
//	<root>/ncas/amf/<collection>/<term>.json
//
// Nothing touches disk until Commit.
type FSStore struct {
	Root string

	collections map[string]*collection
}

type collection struct {
	name        string
	description string
	terms       map[string]term
}

type term struct {
	Authority  string         `json:"authority"`
	Scope      string         `json:"scope"`
	Collection string         `json:"collection"`
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	CreateDate string         `json:"create_date"`
	Data       map[string]any `json:"data,omitempty"`
}

// NewFSStore returns a store rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root, collections: make(map[string]*collection)}
}

func (s *FSStore) CreateCollection(namespace, description string) error {
	name := NormaliseName(namespace)
	if !termPattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", namespace)
	}
	if _, dup := s.collections[name]; dup {
		return fmt.Errorf("collection %q already exists", name)
	}
	s.collections[name] = &collection{name: name, description: description, terms: make(map[string]term)}
	return nil
}

func (s *FSStore) CreateTerm(coll, name string, data map[string]any) error {
	c, ok := s.collections[NormaliseName(coll)]
	if !ok {
		return fmt.Errorf("unknown collection %q", coll)
	}
	n := NormaliseName(name)
	if n == "" || !termPattern.MatchString(n) {
		return fmt.Errorf("invalid term name %q", name)
	}
	if _, dup := c.terms[n]; dup {
		return fmt.Errorf("term %q already exists in %s", n, c.name)
	}
	c.terms[n] = term{
		Authority:  Authority,
		Scope:      Scope,
		Collection: c.name,
		Name:       n,
		Label:      name,
		CreateDate: createDate.Format("2006-01-02 15:04:05"),
		Data:       data,
	}
	return nil
}

// Commit writes every collection directory. Terms are written in name order.
func (s *FSStore) Commit() error {
	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := s.collections[n]
		dir := filepath.Join(s.Root, Authority, Scope, c.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		meta, err := json.MarshalIndent(map[string]string{
			"name":        c.name,
			"description": c.description,
		}, "", "    ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, "MANIFEST"), append(meta, '\n'), 0o644); err != nil {
			return err
		}
		termNames := make([]string, 0, len(c.terms))
		for tn := range c.terms {
			termNames = append(termNames, tn)
		}
		sort.Strings(termNames)
		for _, tn := range termNames {
			b, err := json.MarshalIndent(c.terms[tn], "", "    ")
			if err != nil {
				return fmt.Errorf("term %s/%s: %w", c.name, tn, err)
			}
			if err := os.WriteFile(filepath.Join(dir, tn+".json"), append(b, '\n'), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
