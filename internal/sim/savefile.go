package sim

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Save file layout version. Bumped whenever a field changes meaning.
const saveFileVersion = 1

const mapSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "map"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"checksum": {"type": "integer", "minimum": 0},
		"map": {
			"type": "object",
			"required": ["size", "walls", "vision_modifier"],
			"properties": {
				"size": {
					"type": "array",
					"items": {"type": "integer", "minimum": 1},
					"minItems": 2, "maxItems": 2
				},
				"targets": {"$ref": "#/$defs/points"},
				"towers": {"$ref": "#/$defs/points"},
				"gates": {"type": "array"},
				"markers": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["type", "location"],
						"properties": {
							"type": {"enum": ["RED", "GREEN", "BLUE", "YELLOW", "MAGENTA"]},
							"location": {"$ref": "#/$defs/point"}
						}
					}
				},
				"walls": {
					"type": "array",
					"items": {"type": "array", "items": {"type": "boolean"}}
				},
				"vision_modifier": {
					"type": "array",
					"items": {
						"type": "array",
						"items": {"type": "number", "minimum": 0, "maximum": 1}
					}
				}
			}
		}
	},
	"$defs": {
		"point": {
			"type": "array",
			"items": {"type": "number"},
			"minItems": 2, "maxItems": 2
		},
		"points": {"type": "array", "items": {"$ref": "#/$defs/point"}}
	}
}`

const agentsSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "agents"],
	"properties": {
		"version": {"type": "integer", "minimum": 1},
		"agents": {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

var (
	mapSchema    = jsonschema.MustCompileString("map.schema.json", mapSchemaJSON)
	agentsSchema = jsonschema.MustCompileString("agents.schema.json", agentsSchemaJSON)
)

type mapFileJSON struct {
	Version  int      `json:"version"`
	Checksum uint64   `json:"checksum"`
	Map      mapJSON  `json:"map"`
}

type mapJSON struct {
	Size           [2]int       `json:"size"`
	Targets        [][2]float64 `json:"targets"`
	Towers         [][2]float64 `json:"towers"`
	Gates          []gateJSON   `json:"gates"`
	Markers        []markerJSON `json:"markers"`
	Walls          [][]bool     `json:"walls"`
	VisionModifier [][]float64  `json:"vision_modifier"`
}

type gateJSON struct {
	Location [2]float64 `json:"location"`
	Open     bool       `json:"open"`
}

type markerJSON struct {
	Type     string     `json:"type"`
	Location [2]float64 `json:"location"`
}

type agentsFileJSON struct {
	Version int      `json:"version"`
	Agents  []string `json:"agents"`
}

// mapChecksum hashes the walls and vision arrays so a corrupted or edited
// save is detected on load.
func mapChecksum(m *Map) uint64 {
	h := xxhash.New()
	var buf bytes.Buffer
	for x := 0; x < m.Width(); x++ {
		for y := 0; y < m.Height(); y++ {
			if m.walls[x][y] {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
			_ = binary.Write(&buf, binary.LittleEndian, m.visionModifier[x][y])
		}
	}
	_, _ = h.Write(buf.Bytes())
	return h.Sum64()
}

// MarshalMap serializes a map into the versioned JSON save format.
func MarshalMap(m *Map) ([]byte, error) {
	mj := mapJSON{
		Size:           [2]int{m.Width(), m.Height()},
		Targets:        make([][2]float64, 0, len(m.targets)),
		Towers:         make([][2]float64, 0, len(m.towers)),
		Gates:          make([]gateJSON, 0, len(m.gates)),
		Markers:        make([]markerJSON, 0, len(m.markers)),
		Walls:          m.walls,
		VisionModifier: m.visionModifier,
	}
	for _, t := range m.targets {
		mj.Targets = append(mj.Targets, [2]float64{t.X(), t.Y()})
	}
	for _, t := range m.towers {
		mj.Towers = append(mj.Towers, [2]float64{t.X(), t.Y()})
	}
	for _, g := range m.gates {
		mj.Gates = append(mj.Gates, gateJSON{Location: [2]float64{g.Location.X(), g.Location.Y()}, Open: g.Open})
	}
	for _, mk := range m.markers {
		mj.Markers = append(mj.Markers, markerJSON{Type: mk.Type.String(), Location: [2]float64{mk.Location.X(), mk.Location.Y()}})
	}
	return json.MarshalIndent(mapFileJSON{
		Version:  saveFileVersion,
		Checksum: mapChecksum(m),
		Map:      mj,
	}, "", "  ")
}

// UnmarshalMap parses and validates a map save file.
func UnmarshalMap(data []byte) (*Map, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("map file: %w", err)
	}
	if err := mapSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("map file failed schema validation: %w", err)
	}

	var f mapFileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("map file: %w", err)
	}
	if f.Version > saveFileVersion {
		return nil, fmt.Errorf("map file version %d is newer than supported %d", f.Version, saveFileVersion)
	}

	w, h := f.Map.Size[0], f.Map.Size[1]
	if len(f.Map.Walls) != w || len(f.Map.VisionModifier) != w {
		return nil, fmt.Errorf("map file: wall/vision arrays do not match size %dx%d", w, h)
	}
	m := NewMap(w, h)
	for x := 0; x < w; x++ {
		if len(f.Map.Walls[x]) != h || len(f.Map.VisionModifier[x]) != h {
			return nil, fmt.Errorf("map file: column %d does not match height %d", x, h)
		}
		copy(m.walls[x], f.Map.Walls[x])
		copy(m.visionModifier[x], f.Map.VisionModifier[x])
	}
	for _, t := range f.Map.Targets {
		m.targets = append(m.targets, Pos(t[0], t[1]))
	}
	for _, t := range f.Map.Towers {
		m.towers = append(m.towers, Pos(t[0], t[1]))
	}
	for _, g := range f.Map.Gates {
		m.gates = append(m.gates, Gate{Location: Pos(g.Location[0], g.Location[1]), Open: g.Open})
	}
	for _, mk := range f.Map.Markers {
		mt, err := ParseMarkerType(mk.Type)
		if err != nil {
			return nil, fmt.Errorf("map file: %w", err)
		}
		m.markers = append(m.markers, Marker{Type: mt, Location: Pos(mk.Location[0], mk.Location[1])})
	}

	if f.Checksum != 0 {
		if got := mapChecksum(m); got != f.Checksum {
			return nil, fmt.Errorf("map file checksum mismatch: file %d, computed %d", f.Checksum, got)
		}
	}
	return m, nil
}

// SaveMap writes a map save file.
func SaveMap(path string, m *Map) error {
	data, err := MarshalMap(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadMap reads and validates a map save file.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalMap(data)
}

// MarshalAgents serializes an agent roster: the ordered list of strategy
// tags to instantiate.
func MarshalAgents(tags []string) ([]byte, error) {
	return json.MarshalIndent(agentsFileJSON{Version: saveFileVersion, Agents: tags}, "", "  ")
}

// UnmarshalAgents parses and validates an agent roster file.
func UnmarshalAgents(data []byte) ([]string, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("agents file: %w", err)
	}
	if err := agentsSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("agents file failed schema validation: %w", err)
	}
	var f agentsFileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("agents file: %w", err)
	}
	return f.Agents, nil
}

// LoadAgents reads and validates an agent roster file.
func LoadAgents(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalAgents(data)
}
