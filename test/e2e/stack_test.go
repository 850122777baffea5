//go:build e2e

package e2e

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rh-ecosystem-edge/amd-ci/internal/ocp"
)

var _ = Describe("cluster access", func() {
	It("reaches the cluster API through the transport", func() {
		Expect(client.APIReachable(ctx)).To(BeTrue())
	})

	It("sees the expected node count", func() {
		nodes, err := client.Nodes(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes.Items).To(HaveLen(cfg.Cluster.NodeCount()))
	})
})

var _ = Describe("operator stack", Ordered, func() {
	It("verifies platform prerequisites", func() {
		Expect(stack.VerifyPrerequisites(ctx)).To(Succeed())
	})

	It("configures the image registry", func() {
		Expect(stack.ConfigureRegistry(ctx)).To(Succeed())
	})

	It("waits for a stable cluster", func() {
		Expect(stack.WaitForClusterStability(ctx)).To(Succeed())
	})

	It("installs NFD, KMM and the AMD GPU operator", func() {
		Expect(stack.InstallAll(ctx)).To(Succeed())
	})

	It("creates the post-install resources", func() {
		_, err := stack.EnsureNFDInstance(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = stack.EnsureNodeFeatureRule(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = stack.EnsureDeviceConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is idempotent on a second pass", func() {
		Expect(stack.InstallAll(ctx)).To(Succeed())

		outcome, err := stack.EnsureNFDInstance(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(ocp.Unchanged))

		outcome, err = stack.EnsureDeviceConfig(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(ocp.Unchanged))
	})

	It("reports GPU capacity when hardware is present", func() {
		if !cfg.Operators.GPUVerificationEnabled() {
			Skip("gpu verification disabled in config")
		}
		Expect(stack.WaitForGPUReady(ctx)).To(Succeed())
	})
})
