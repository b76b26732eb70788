// Package catalog loads the read-only content tables the simulation consumes:
// events, enemies, building upgrade rules, and technologies. Each table is a
// YAML document validated against an embedded JSON schema. Tables missing
// from the config directory fall back to the embedded defaults.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/idle-empire/internal/combat"
	"github.com/talgya/idle-empire/internal/events"
	"github.com/talgya/idle-empire/internal/governor"
)

//go:embed data/*.yaml schemas/*.schema.json
var embedded embed.FS

const schemaBase = "https://schemas.idle-empire.dev/"

// Table names, also the file stems under the config dir.
const (
	TableEvents       = "events"
	TableEnemies      = "enemies"
	TableBuildings    = "buildings"
	TableTechnologies = "technologies"
)

// Catalog is the full set of loaded tables.
type Catalog struct {
	Events  []events.GameEvent
	Enemies []combat.EnemyForce
	Rules   governor.Rules

	// Digest fingerprints the raw table bytes.
	Digest string
	// Sources maps each table to the file it came from ("embedded" for defaults).
	Sources map[string]string
}

// Default loads only the embedded tables.
func Default() (*Catalog, error) {
	return Load("")
}

// Load reads the tables from dir, using embedded defaults for any that are
// absent. An empty dir loads everything from the defaults.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{Sources: map[string]string{}}
	h := sha256.New()

	var eventsDoc struct {
		Events []events.GameEvent `yaml:"events"`
	}
	var enemiesDoc struct {
		Enemies []combat.EnemyForce `yaml:"enemies"`
	}
	var buildingsDoc struct {
		Buildings []governor.BuildingSpec `yaml:"buildings"`
	}
	var techDoc struct {
		Technologies []governor.Technology `yaml:"technologies"`
	}

	tables := []struct {
		name string
		out  any
	}{
		{TableEvents, &eventsDoc},
		{TableEnemies, &enemiesDoc},
		{TableBuildings, &buildingsDoc},
		{TableTechnologies, &techDoc},
	}
	for _, t := range tables {
		raw, src, err := readTable(dir, t.name)
		if err != nil {
			return nil, err
		}
		if err := validateDocument(t.name, raw); err != nil {
			return nil, fmt.Errorf("%s (%s): %w", t.name, src, err)
		}
		if err := yaml.Unmarshal(raw, t.out); err != nil {
			return nil, fmt.Errorf("%s (%s): %w", t.name, src, err)
		}
		h.Write(raw)
		c.Sources[t.name] = src
	}

	c.Events = eventsDoc.Events
	c.Enemies = enemiesDoc.Enemies
	c.Rules = governor.Rules{Buildings: buildingsDoc.Buildings, Technologies: techDoc.Technologies}
	c.Digest = hex.EncodeToString(h.Sum(nil))

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readTable(dir, name string) ([]byte, string, error) {
	if dir != "" {
		path := filepath.Join(dir, name+".yaml")
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	raw, err := embedded.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, "", fmt.Errorf("read embedded %s: %w", name, err)
	}
	return raw, "embedded", nil
}

// validateDocument checks a YAML table against its schema. The YAML is
// re-encoded as JSON so the validator sees plain JSON values.
func validateDocument(name string, raw []byte) error {
	schema, err := compileSchema(name)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := embedded.ReadFile("schemas/" + name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	url := schemaBase + name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return s, nil
}

// Validate checks entry invariants and cross-table references.
func (c *Catalog) Validate() error {
	ids := map[string]bool{}
	for i := range c.Events {
		e := &c.Events[i]
		if err := e.Validate(); err != nil {
			return err
		}
		if ids[e.ID] {
			return fmt.Errorf("event %s listed twice", e.ID)
		}
		ids[e.ID] = true
	}
	for _, e := range c.Events {
		for _, ch := range e.Choices {
			if f := ch.Outcome.FollowupEventID; f != "" && !ids[f] {
				return fmt.Errorf("event %s choice %s follows up with unknown event %s", e.ID, ch.ID, f)
			}
		}
	}

	enemies := map[string]bool{}
	for i := range c.Enemies {
		e := &c.Enemies[i]
		if err := e.Validate(); err != nil {
			return err
		}
		if enemies[e.ID] {
			return fmt.Errorf("enemy %s listed twice", e.ID)
		}
		enemies[e.ID] = true
	}
	return c.Rules.Validate()
}

// Event looks up an event by id.
func (c *Catalog) Event(id string) (*events.GameEvent, bool) {
	for i := range c.Events {
		if c.Events[i].ID == id {
			return &c.Events[i], true
		}
	}
	return nil, false
}

// Enemy looks up an enemy by id.
func (c *Catalog) Enemy(id string) (*combat.EnemyForce, bool) {
	for i := range c.Enemies {
		if c.Enemies[i].ID == id {
			return &c.Enemies[i], true
		}
	}
	return nil, false
}
