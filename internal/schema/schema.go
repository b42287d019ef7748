// Package schema implements the JSON-schema-like node model used by the
// mock generator and the deterministic structural synthesis over it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the node type, matching the Gemini responseSchema vocabulary.
type Kind string

const (
	KindObject  Kind = "OBJECT"
	KindArray   Kind = "ARRAY"
	KindString  Kind = "STRING"
	KindBoolean Kind = "BOOLEAN"
	KindInteger Kind = "INTEGER"
	KindNumber  Kind = "NUMBER"
)

// Property is a named child of an OBJECT node. Properties keep declaration
// order because synthesis recurses in that order.
type Property struct {
	Name string
	Node *Node
}

// Node is a recursive schema description.
type Node struct {
	Kind       Kind
	Title      string
	Properties []Property // OBJECT only
	Items      *Node      // ARRAY only
	Enum       []string   // STRING only
}

// Property returns the child node with the given name, or nil.
func (n *Node) Property(name string) *Node {
	if n == nil {
		return nil
	}
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node
		}
	}
	return nil
}

// UnmarshalJSON decodes a schema object while preserving property order,
// which encoding/json's map decoding would destroy.
func (n *Node) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	return n.decode(dec)
}

func (n *Node) decode(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		switch key {
		case "type":
			var s string
			if err := dec.Decode(&s); err != nil {
				return err
			}
			n.Kind = Kind(strings.ToUpper(s))
		case "title":
			if err := dec.Decode(&n.Title); err != nil {
				return err
			}
		case "enum":
			if err := dec.Decode(&n.Enum); err != nil {
				return err
			}
		case "items":
			n.Items = &Node{}
			if err := n.Items.decode(dec); err != nil {
				return err
			}
		case "properties":
			if err := n.decodeProperties(dec); err != nil {
				return err
			}
		default:
			// Skip unknown fields (description, required, nullable, ...).
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
		}
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (n *Node) decodeProperties(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected properties object, got %v", tok)
	}

	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return err
		}
		child := &Node{}
		if err := child.decode(dec); err != nil {
			return err
		}
		n.Properties = append(n.Properties, Property{Name: nameTok.(string), Node: child})
	}

	_, err = dec.Token()
	return err
}

// Synthesize produces a deterministic placeholder value for a schema node.
// The same node always yields the same document: objects recurse into every
// declared property in declaration order, arrays get exactly one element,
// strings take the first enum value when one is declared.
func Synthesize(n *Node) interface{} {
	if n == nil {
		return map[string]interface{}{}
	}

	switch n.Kind {
	case KindObject:
		out := make(map[string]interface{}, len(n.Properties))
		for _, p := range n.Properties {
			out[p.Name] = Synthesize(p.Node)
		}
		return out
	case KindArray:
		return []interface{}{Synthesize(n.Items)}
	case KindString:
		if len(n.Enum) > 0 {
			return n.Enum[0]
		}
		return "mock_string"
	case KindBoolean:
		return false
	case KindInteger:
		return 1
	case KindNumber:
		return 1.0
	default:
		return map[string]interface{}{}
	}
}
