package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/metastore/internal/value"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // File or document not found
	ErrCodeParse        = "E003" // Input could not be parsed
	ErrCodeInvalidInput = "E004" // Input has the wrong shape
	ErrCodeStore        = "E005" // Backend failure
	ErrCodeNotApplied   = "E006" // Operation reported failure
	ErrCodeConfig       = "E007" // Invalid configuration
)

// LoadError represents an error that occurred while loading a document file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDocument reads a payload file. The format follows the extension:
// .json, .yaml/.yml or .cue. Object key order is kept in every format.
func LoadDocument(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		v, err := value.Unmarshal(data)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("parsing %s: %v", path, err)}
		}
		return v, nil
	case ".yaml", ".yml":
		return decodeYAML(path, data)
	case ".cue":
		return decodeCUE(path, data)
	default:
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("unsupported file type %q (expected .json, .yaml or .cue)", filepath.Ext(path))}
	}
}

// ParseArg reads a command-line value: valid JSON is decoded, anything else
// is taken as a string.
func ParseArg(arg string) value.Value {
	if v, err := value.Unmarshal([]byte(arg)); err == nil {
		return v
	}
	return value.String(arg)
}

func decodeYAML(path string, data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	if doc.Kind == 0 {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("%s is empty", path)}
	}
	v, err := fromYAML(&doc)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("%s: %v", path, err)}
	}
	return v, nil
}

func fromYAML(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null{}, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		obj := value.Object{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj = obj.With(key.Value, v)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(value.Array, 0, len(n.Content))
		for _, elem := range n.Content {
			v, err := fromYAML(elem)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func yamlScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		fallthrough
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("line %d: %s is not a finite number", n.Line, n.Value)
		}
		return value.Float(f), nil
	default:
		return value.String(n.Value), nil
	}
}

func decodeCUE(path string, data []byte) (value.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(err)
	}
	out, err := fromCUE(v)
	if err != nil {
		return nil, cueLoadError(err)
	}
	return out, nil
}

func cueLoadError(err error) *LoadError {
	loadErr := &LoadError{Code: ErrCodeParse, Message: err.Error()}
	if list := cueerrors.Errors(err); len(list) > 0 {
		loadErr.Pos = list[0].Position()
		loadErr.Message = list[0].Error()
	}
	return loadErr
}

func fromCUE(v cue.Value) (value.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return value.Int(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return value.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := value.Object{}
		for iter.Next() {
			elem, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			obj = append(obj, value.Pair{Key: iter.Selector().Unquoted(), Value: elem})
		}
		return obj, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := value.Array{}
		for iter.Next() {
			elem, err := fromCUE(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported CUE value of kind %v", v.Kind())
	}
}
