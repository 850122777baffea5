package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
)

// WriteConfig writes the config as YAML with a descriptive header. The file
// carries the pull secret path and SSH key path, so it is owner-only.
func WriteConfig(cfg *config.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(header(path))
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func header(path string) string {
	return fmt.Sprintf(`# amd-ci configuration
# Generated by "amd-ci init" on %s.
#
# Run "amd-ci deploy --config %s" to provision the cluster, then
# "amd-ci operators" to install the AMD GPU operator stack.
# Every field can be edited by hand; unset fields fall back to defaults.

`, time.Now().Format("2006-01-02"), path)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	keyStyle   = lipgloss.NewStyle().Faint(true).Width(18)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Summary renders the post-wizard confirmation block.
func Summary(cfg *config.Config, path string) string {
	var sb strings.Builder
	sb.WriteString(okStyle.Render("Configuration written to "+path) + "\n\n")
	sb.WriteString(titleStyle.Render("Cluster") + "\n")

	rows := []struct{ k, v string }{
		{"name", cfg.Cluster.Name},
		{"domain", cfg.Cluster.Domain},
		{"topology", cfg.Cluster.Topology()},
		{"version", cfg.Cluster.Version},
		{"api vip", cfg.Cluster.APIIP},
		{"gpu operator", cfg.Operators.GPUOperatorVersion},
	}
	if cfg.Remote != nil {
		rows = append(rows, struct{ k, v string }{"remote host", cfg.Remote.User + "@" + cfg.Remote.Host})
	} else {
		rows = append(rows, struct{ k, v string }{"remote host", "(local libvirt)"})
	}
	for _, r := range rows {
		sb.WriteString(keyStyle.Render(r.k) + " " + r.v + "\n")
	}
	return sb.String()
}
