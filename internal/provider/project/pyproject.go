package project

import (
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/trainboot/trainboot/internal/ports"
)

// pyprojectFile mirrors the fields of pyproject.toml we care about.
type pyprojectFile struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// DistributionName determines the installed distribution name of the local
// project: pyproject.toml's [project] name, then the poetry section, then
// the directory name.
func DistributionName(fs ports.FileSystem, dir string) string {
	data, err := fs.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err == nil {
		var parsed pyprojectFile
		if err := toml.Unmarshal(data, &parsed); err == nil {
			if parsed.Project.Name != "" {
				return parsed.Project.Name
			}
			if parsed.Tool.Poetry.Name != "" {
				return parsed.Tool.Poetry.Name
			}
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}
