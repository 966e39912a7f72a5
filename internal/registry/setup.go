package registry

import (
	"os"
	"path/filepath"

	"github.com/deboxhq/debox/internal/paths"
)

// Daemon configuration for the registry container. Deletion is off by
// default upstream; without it neither image removal nor pruning works.
const daemonConfig = `version: 0.1
storage:
  filesystem:
    rootdirectory: /var/lib/registry
  delete:
    enabled: true
http:
  addr: :5000
`

// Writes the registry daemon config mounted into the registry container.
func WriteDaemonConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(daemonConfig), paths.DefaultFileMode)
}
