package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

//go:embed defaults/*.json
var defaultFS embed.FS

type Catalogs struct {
	Objects ObjectCatalog
	Items   ItemCatalog
	Layout  Layout

	// Digest covers every file that was loaded, in load order.
	Digest string
}

type ObjectCatalog struct {
	Defs   map[int]ObjectDef
	Digest string
}

// ObjectDef describes a world object. Objects with a Product are gathered by
// interacting with them.
type ObjectDef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Skill        string `json:"skill,omitempty"`
	Product      int    `json:"product,omitempty"`
	Blocking     bool   `json:"blocking"`
	Depletes     bool   `json:"depletes,omitempty"`
	RespawnTicks int    `json:"respawn_ticks,omitempty"`
	XP           int    `json:"xp,omitempty"`
}

type ItemCatalog struct {
	Defs   map[int]ItemDef
	Digest string
}

type ItemDef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Stackable bool   `json:"stackable,omitempty"`
	// BuryXP is the prayer experience for using the item; zero if it cannot
	// be buried.
	BuryXP int `json:"bury_xp,omitempty"`
}

// Layout is the initial population of the map.
type Layout struct {
	Walls   [][2]int    `json:"walls"`
	Objects []Placement `json:"objects"`
	NPCs    []Placement `json:"npcs"`
	Items   []Placement `json:"items"`
	Bank    []ItemCount `json:"bank,omitempty"`
	Digest  string      `json:"-"`
}

type Placement struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

type ItemCount struct {
	ID    int `json:"id"`
	Count int `json:"count"`
}

// Load reads objects.json, items.json and layout.json from configDir.
func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

// Default returns the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	sub, err := fs.Sub(defaultFS, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs
	var concat bytes.Buffer

	raw, err := fs.ReadFile(fsys, "objects.json")
	if err != nil {
		return nil, err
	}
	concat.Write(raw)
	if err := loadObjects(raw, &c.Objects); err != nil {
		return nil, err
	}

	raw, err = fs.ReadFile(fsys, "items.json")
	if err != nil {
		return nil, err
	}
	concat.Write(raw)
	if err := loadItems(raw, &c.Items); err != nil {
		return nil, err
	}

	raw, err = fs.ReadFile(fsys, "layout.json")
	if err != nil {
		return nil, err
	}
	concat.Write(raw)
	if err := loadLayout(raw, &c); err != nil {
		return nil, err
	}

	c.Digest = sha256Hex(concat.Bytes())
	return &c, nil
}

func (c *Catalogs) Object(id int) (ObjectDef, bool) {
	d, ok := c.Objects.Defs[id]
	return d, ok
}

func (c *Catalogs) Item(id int) (ItemDef, bool) {
	d, ok := c.Items.Defs[id]
	return d, ok
}

// ItemName falls back to "item <id>" for unknown ids.
func (c *Catalogs) ItemName(id int) string {
	if d, ok := c.Items.Defs[id]; ok && d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("item %d", id)
}

// ObjectIDs lists known object ids in ascending order.
func (c *Catalogs) ObjectIDs() []int {
	ids := make([]int, 0, len(c.Objects.Defs))
	for id := range c.Objects.Defs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadObjects(raw []byte, out *ObjectCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []ObjectDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("objects.json: %w", err)
	}
	out.Defs = make(map[int]ObjectDef, len(defs))
	for _, d := range defs {
		if d.ID < 0 {
			return fmt.Errorf("objects.json: negative id %d", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("objects.json: duplicate id %d", d.ID)
		}
		if d.Depletes && d.RespawnTicks <= 0 {
			return fmt.Errorf("objects.json: object %d depletes without respawn_ticks", d.ID)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadItems(raw []byte, out *ItemCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[int]ItemDef, len(defs))
	for _, d := range defs {
		if d.ID < 0 {
			return fmt.Errorf("items.json: negative id %d", d.ID)
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %d", d.ID)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadLayout(raw []byte, c *Catalogs) error {
	var l Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		return fmt.Errorf("layout.json: %w", err)
	}
	for _, p := range l.Objects {
		if _, ok := c.Objects.Defs[p.ID]; !ok {
			return fmt.Errorf("layout.json: unknown object %d at (%d,%d)", p.ID, p.X, p.Y)
		}
	}
	for _, p := range l.Items {
		if _, ok := c.Items.Defs[p.ID]; !ok {
			return fmt.Errorf("layout.json: unknown item %d at (%d,%d)", p.ID, p.X, p.Y)
		}
	}
	for _, ic := range l.Bank {
		if _, ok := c.Items.Defs[ic.ID]; !ok || ic.Count <= 0 {
			return fmt.Errorf("layout.json: bad bank entry %d x%d", ic.ID, ic.Count)
		}
	}
	l.Digest = sha256Hex(raw)
	c.Layout = l
	return nil
}
