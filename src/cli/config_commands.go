package cli

import (
	"fmt"
	"io"

	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
)

// RunConfigInit writes the default configuration to path, or to the default
// location when path is empty. An existing file is kept unless force is set.
func RunConfigInit(w io.Writer, path string, force bool) error {
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	path, err := common.ExpandPath(path)
	if err != nil {
		return err
	}

	if common.FileExists(path) && !force {
		return fmt.Errorf("configuration file %s already exists (use --%s to overwrite)", path, FlagForce)
	}
	if err := config.GenerateDefaultConfig(path); err != nil {
		return err
	}

	common.CLILogger.Debug("Wrote default configuration to %s", path)
	fmt.Fprintf(w, "Wrote default configuration to %s\n", path)
	return nil
}
