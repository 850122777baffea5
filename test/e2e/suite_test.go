//go:build e2e

// Package e2e exercises the full pipeline against a live provisioning host
// and cluster. These tests deploy nothing by themselves; they expect a
// cluster already provisioned with "amd-ci deploy".
//
// Run with:
//
//	AMD_CI_E2E_CONFIG=lab.yaml go test -v -tags=e2e ./test/e2e/...
package e2e

import (
	"context"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rh-ecosystem-edge/amd-ci/internal/config"
	"github.com/rh-ecosystem-edge/amd-ci/internal/kubeconfig"
	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
	"github.com/rh-ecosystem-edge/amd-ci/internal/operators"
	"github.com/rh-ecosystem-edge/amd-ci/internal/transport"
)

var (
	cfg      *config.Config
	timeouts *config.Timeouts
	trans    transport.Transport
	client   *ocp.Client
	stack    *operators.Stack

	ctx    context.Context
	cancel context.CancelFunc
)

func TestE2E(t *testing.T) {
	if os.Getenv("AMD_CI_E2E_CONFIG") == "" {
		t.Skip("AMD_CI_E2E_CONFIG not set, skipping e2e suite")
	}
	RegisterFailHandler(Fail)
	RunSpecs(t, "amd-ci E2E Suite")
}

var _ = BeforeSuite(func() {
	ctx, cancel = context.WithCancel(context.Background())

	var err error
	cfg, err = config.LoadFile(os.Getenv("AMD_CI_E2E_CONFIG"))
	Expect(err).NotTo(HaveOccurred())
	timeouts = config.LoadTimeouts(cfg.Timeouts)

	if cfg.Remote != nil {
		trans, err = transport.NewSSH(transport.SSHConfig{
			Host:    cfg.Remote.Host,
			User:    cfg.Remote.User,
			KeyPath: cfg.Remote.Key,
			Port:    cfg.Remote.Port,
		})
		Expect(err).NotTo(HaveOccurred())
	} else {
		trans = transport.NewLocal()
	}

	By("checking the provisioning host is reachable")
	Expect(transport.Check(ctx, trans)).To(Succeed())

	client = ocp.NewClient(trans, kubeconfig.HostPath)
	stack = operators.NewStack(client, cfg.Operators, timeouts, cfg.Cluster.Version, GinkgoWriter)
})

var _ = AfterSuite(func() {
	if cancel != nil {
		cancel()
	}
})
