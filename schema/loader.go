package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bronystylecrazy/metaroute/fault"
	"gopkg.in/yaml.v3"
)

const (
	PathSchemaFile     = "path-schema.json"
	ParamsSchemaFile   = "params-schema.json"
	ResponseSchemaFile = "response-schema.json"

	routeTablePattern     = "*/*/paths.{json,yaml,yml}"
	responseSchemaPattern = "*/" + ResponseSchemaFile
)

// Loader reads the declarative metadata tree:
//
//	path-schema.json
//	params-schema.json
//	<version>/response-schema.json
//	<version>/<category>/paths.json
type Loader struct {
	fsys fs.FS
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

func (l *Loader) Load() (*Snapshot, error) {
	raw, err := readDocument(l.fsys, PathSchemaFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", PathSchemaFile, err)
	}
	pathSchema, err := decodePathSchema(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", PathSchemaFile, err)
	}

	supportSchema := SupportSchema{}
	raw, err = readDocument(l.fsys, ParamsSchemaFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", ParamsSchemaFile, err)
	default:
		if supportSchema, err = decodeSupportSchema(raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ParamsSchemaFile, err)
		}
	}

	snap := &Snapshot{
		path:     pathSchema,
		support:  supportSchema,
		versions: map[string]*VersionSnapshot{},
	}

	responseFiles, err := doublestar.Glob(l.fsys, responseSchemaPattern)
	if err != nil {
		return nil, err
	}
	for _, file := range responseFiles {
		version := strings.Split(file, "/")[0]
		raw, err := readDocument(l.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		responses, err := decodeResponseSchemas(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		snap.version(version).responses = responses
	}

	tableFiles, err := doublestar.Glob(l.fsys, routeTablePattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(tableFiles)
	for _, file := range tableFiles {
		parts := strings.Split(file, "/")
		version, category := parts[0], parts[1]
		vs := snap.version(version)
		if _, dup := vs.tables[category]; dup {
			return nil, fmt.Errorf("category %s/%s has more than one paths file", version, category)
		}
		raw, err := readDocument(l.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
		table, err := decodeRouteTable(version, category, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		vs.tables[category] = table
	}
	return snap, nil
}

func readDocument(fsys fs.FS, name string) (map[string]any, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	switch path.Ext(name) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &out)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&out)
	}
	if err != nil {
		return nil, fault.Schema("%s is not a valid document", name).Wrap(err)
	}
	return out, nil
}
