package calendar

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlBlock is the on-disk representation of a Block.
type yamlBlock struct {
	Start string `yaml:"start"` // "HH:MM"
	End   string `yaml:"end"`   // "HH:MM"
}

type yamlWeek struct {
	Monday    []yamlBlock `yaml:"monday"`
	Tuesday   []yamlBlock `yaml:"tuesday"`
	Wednesday []yamlBlock `yaml:"wednesday"`
	Thursday  []yamlBlock `yaml:"thursday"`
	Friday    []yamlBlock `yaml:"friday"`
	Saturday  []yamlBlock `yaml:"saturday"`
	Sunday    []yamlBlock `yaml:"sunday"`
}

// LoadWeek reads a working-calendar definition from a YAML file. A missing
// path returns Default() unchanged.
func LoadWeek(path string) (Week, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Week{}, fmt.Errorf("calendar: read %s: %w", path, err)
	}

	var doc yamlWeek
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Week{}, fmt.Errorf("calendar: parse %s: %w", path, err)
	}

	var w Week
	days := [][]yamlBlock{
		doc.Sunday, doc.Monday, doc.Tuesday, doc.Wednesday,
		doc.Thursday, doc.Friday, doc.Saturday,
	}
	for weekday, blocks := range days {
		converted, err := convertBlocks(blocks)
		if err != nil {
			return Week{}, err
		}
		w.Days[weekday] = converted
	}
	return w, nil
}

func convertBlocks(blocks []yamlBlock) ([]Block, error) {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		startMin, err := parseHHMM(b.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: bad start %q: %w", b.Start, err)
		}
		endMin, err := parseHHMM(b.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: bad end %q: %w", b.End, err)
		}
		if endMin <= startMin {
			return nil, fmt.Errorf("calendar: block end %q not after start %q", b.End, b.Start)
		}
		out = append(out, Block{StartMinute: startMin, EndMinute: endMin})
	}
	return out, nil
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("out of range")
	}
	return h*60 + m, nil
}
