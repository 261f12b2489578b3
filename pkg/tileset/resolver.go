package tileset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrUnknownDataset = errors.New("unknown dataset")

// Dataset describes where a logical dataset lives under the workspace.
// Filename and Tilename are templates: {name} is replaced by the parameter
// of that name, {name:03d} formats it with the given verb.
type Dataset struct {
	Subdir   string `yaml:"subdir"`
	Filename string `yaml:"filename"`
	Tilename string `yaml:"tilename"`
}

// Params are the coordinate parameters substituted into path templates,
// for example {"axis": 12}.
type Params map[string]any

// Resolver maps a logical dataset name plus parameters to a concrete path.
// Resolution is idempotent, creates parent directories of new paths, and
// returns the first candidate location that already exists.
type Resolver struct {
	WorkDir   string
	OutputDir string
	TileDir   string
	Datasets  map[string]Dataset
}

var placeholder = regexp.MustCompile(`\{(\w+)(?::([^}]+))?\}`)

func expand(template string, params Params) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		v, ok := params[parts[1]]
		if !ok {
			missing = append(missing, parts[1])
			return m
		}
		verb := "v"
		if parts[2] != "" {
			verb = parts[2]
		}
		return fmt.Sprintf("%"+verb, v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %q: missing parameters %s", template, strings.Join(missing, ", "))
	}
	return out, nil
}

func (r *Resolver) dataset(name string) (Dataset, error) {
	d, ok := r.Datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	if d.Filename == "" {
		d.Filename = name + ".vsr"
	}
	if d.Tilename == "" {
		ext := filepath.Ext(d.Filename)
		d.Tilename = strings.TrimSuffix(d.Filename, ext) + "_{row:02d}_{col:02d}" + ext
	}
	return d, nil
}

func (r *Resolver) roots() []string {
	if r.OutputDir != "" {
		return []string{filepath.Join(r.WorkDir, r.OutputDir), r.WorkDir}
	}
	return []string{r.WorkDir}
}

func (r *Resolver) pick(rel string) (string, error) {
	roots := r.roots()
	for _, root := range roots {
		candidate := filepath.Join(root, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	path := filepath.Join(roots[0], rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Path returns the main file of a dataset.
func (r *Resolver) Path(name string, params Params) (string, error) {
	d, err := r.dataset(name)
	if err != nil {
		return "", err
	}
	subdir, err := expand(d.Subdir, params)
	if err != nil {
		return "", err
	}
	filename, err := expand(d.Filename, params)
	if err != nil {
		return "", err
	}
	return r.pick(filepath.Join(subdir, filename))
}

// TilePath returns the file of one tile of a dataset.
func (r *Resolver) TilePath(name string, row, col int, params Params) (string, error) {
	d, err := r.dataset(name)
	if err != nil {
		return "", err
	}
	p := Params{"row": row, "col": col}
	for k, v := range params {
		p[k] = v
	}
	subdir, err := expand(d.Subdir, p)
	if err != nil {
		return "", err
	}
	filename, err := expand(d.Tilename, p)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(filepath.Base(d.Filename), filepath.Ext(d.Filename))
	base, err = expand(base, p)
	if err != nil {
		return "", err
	}
	return r.pick(filepath.Join(subdir, r.TileDir, base, filename))
}
