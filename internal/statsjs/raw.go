package statsjs

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/j-veylop/gatling-dashboard-tui/internal/models"
)

// rawNode mirrors a node of the stats literal.
type rawNode struct {
	Type          models.NodeType `json:"type"`
	Name          string          `json:"name"`
	Path          string          `json:"path"`
	PathFormatted string          `json:"pathFormatted"`
	Stats         models.Stats    `json:"stats"`
	Contents      orderedNodes    `json:"contents"`
}

func (r *rawNode) toNode() models.Node {
	n := models.Node{
		Type:          r.Type,
		Name:          r.Name,
		Path:          r.Path,
		PathFormatted: r.PathFormatted,
		Stats:         r.Stats,
	}
	if n.Name == "" {
		n.Name = r.Stats.Name
	}
	for i := range r.Contents {
		n.Contents = append(n.Contents, r.Contents[i].toNode())
	}
	return n
}

// orderedNodes decodes the "contents" object keeping the file order of its
// entries, which a Go map would lose.
type orderedNodes []rawNode

func (o *orderedNodes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("contents: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var n rawNode
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("contents[%s]: %w", key, err)
		}
		if n.PathFormatted == "" {
			n.PathFormatted = key
		}
		*o = append(*o, n)
	}

	_, err = dec.Token()
	return err
}
