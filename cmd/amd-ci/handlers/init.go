package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/config/wizard"
)

// Factory function variables - replaced in tests.
var (
	runWizard   = wizard.Run
	writeConfig = wizard.WriteConfig
)

// Init runs the interactive wizard and writes a starter config file.
func Init(ctx context.Context, outputPath string, force bool, out io.Writer) error {
	if outputPath == "" {
		outputPath = config.DefaultConfigFile
	}
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", outputPath)
		}
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("generated configuration is invalid: %w", err)
	}
	if err := writeConfig(cfg, outputPath); err != nil {
		return err
	}

	fmt.Fprintln(out, wizard.Summary(cfg, outputPath))
	return nil
}
